package models

// Funcionario is the cached profile of the logged-in posto employee,
// as returned by GET api/user/.
type Funcionario struct {
	ID             string `json:"id"`
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	NumeroTelefone string `json:"numero_telefone"`
	Endereco       string `json:"endereco"`
	Status         string `json:"status"`
	Posto          *Posto `json:"posto"`
}
