package handover

import "posto/internal/domain/models"

// Action identifies one legal operation on a lance. The same constants
// drive both the legal-action-set computation and the submit paths, so a
// label mismatch between the two cannot exist.
type Action string

const (
	ActionReceber                  Action = "receber"
	ActionEnviarCodigo             Action = "enviar_codigo"
	ActionConfirmarCodigo          Action = "confirmar_codigo"
	ActionEntregar                 Action = "entregar"
	ActionNegar                    Action = "negar"
	ActionEnviarCodigoDevolucao    Action = "enviar_codigo_devolucao"
	ActionConfirmarCodigoDevolucao Action = "confirmar_codigo_devolucao"
	ActionDevolver                 Action = "devolver"
)

// CodePurpose scopes a verification code to pickup or return. A closed
// enum rather than free text, so a typo cannot silently create an
// unrecognized purpose.
type CodePurpose string

const (
	PurposeEntrega   CodePurpose = "entrega"
	PurposeDevolucao CodePurpose = "devolucao"
)

// Actions computes the legal action set for a lance. It is a pure function
// of (status, codigo_verificado, codigo_verificado_devolucao) and must be
// recomputed after every transition: codes and statuses are authoritative
// only on the server.
func Actions(lance models.Lance) []Action {
	switch lance.Status {
	case models.StatusEspera:
		return []Action{ActionReceber}

	case models.StatusRecebido:
		if !lance.CodigoVerificado {
			return []Action{ActionEnviarCodigo, ActionConfirmarCodigo, ActionNegar}
		}
		return []Action{ActionEntregar, ActionNegar}

	case models.StatusRecusado:
		if !lance.CodigoVerificadoDevolucao {
			return []Action{ActionEnviarCodigoDevolucao, ActionConfirmarCodigoDevolucao}
		}
		return []Action{ActionDevolver}

	default:
		// entregue and devolvido are terminal; unknown statuses expose
		// nothing rather than guessing.
		return nil
	}
}

// Allowed reports whether action is in the legal action set of lance.
func Allowed(lance models.Lance, action Action) bool {
	for _, a := range Actions(lance) {
		if a == action {
			return true
		}
	}
	return false
}
