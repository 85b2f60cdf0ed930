package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LanceStatus is the custody status of a lance after payment.
// Owned by the backend; the client never changes it locally.
type LanceStatus string

const (
	StatusEspera    LanceStatus = "espera"
	StatusRecebido  LanceStatus = "recebido"
	StatusEntregue  LanceStatus = "entregue"
	StatusRecusado  LanceStatus = "recusado"
	StatusDevolvido LanceStatus = "devolvido"
)

// Terminal reports whether no further custody transition is possible.
func (s LanceStatus) Terminal() bool {
	return s == StatusEntregue || s == StatusDevolvido
}

// Lance is a customer bid whose product is under custody handling at a posto.
type Lance struct {
	ID                        string          `json:"id"`
	Status                    LanceStatus     `json:"status_pos_pagamento"`
	Produto                   Produto         `json:"produto"`
	Posto                     Posto           `json:"posto"`
	Preco                     decimal.Decimal `json:"preco"`
	Quantidade                int             `json:"quantidade"`
	Descricao                 string          `json:"descricao"`
	CodigoVerificado          bool            `json:"codigo_verificado"`
	CodigoVerificadoDevolucao bool            `json:"codigo_verificado_devolucao"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// Produto is the product reference carried by a lance.
type Produto struct {
	ID        string          `json:"id"`
	Nome      string          `json:"nome"`
	Descricao string          `json:"descricao"`
	Preco     decimal.Decimal `json:"preco"`
	Imagens   []ProdutoImagem `json:"imagens"`
}

// ProdutoImagem is a media path relative to the backend's media URL.
type ProdutoImagem struct {
	Imagem string `json:"imagem"`
}

// URL resolves the media path against the backend's media base URL.
func (i ProdutoImagem) URL(mediaBaseURL string) string {
	return strings.TrimSuffix(mediaBaseURL, "/") + "/" + strings.TrimPrefix(i.Imagem, "/")
}

// Posto is a physical drop-off point staffed by funcionários.
type Posto struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
}
