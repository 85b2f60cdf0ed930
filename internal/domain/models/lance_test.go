package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posto/internal/domain/models"
)

func TestLanceStatus_Terminal(t *testing.T) {
	assert.False(t, models.StatusEspera.Terminal())
	assert.False(t, models.StatusRecebido.Terminal())
	assert.False(t, models.StatusRecusado.Terminal())
	assert.True(t, models.StatusEntregue.Terminal())
	assert.True(t, models.StatusDevolvido.Terminal())
}

func TestProdutoImagem_URL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "plain join", base: "http://localhost:8000", path: "media/p.jpg", want: "http://localhost:8000/media/p.jpg"},
		{name: "both carry slash", base: "http://localhost:8000/", path: "/media/p.jpg", want: "http://localhost:8000/media/p.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imagem := models.ProdutoImagem{Imagem: tt.path}
			assert.Equal(t, tt.want, imagem.URL(tt.base))
		})
	}
}

func TestLance_DecodesBackendShape(t *testing.T) {
	raw := `{
		"id": "l1",
		"status_pos_pagamento": "recebido",
		"codigo_verificado": true,
		"codigo_verificado_devolucao": false,
		"preco": "149.90",
		"quantidade": 2,
		"produto": {"id": "pr1", "nome": "Fone", "imagens": [{"imagem": "media/fone.jpg"}]},
		"posto": {"id": "p1", "nome": "Posto Central"}
	}`

	var lance models.Lance
	require.NoError(t, json.Unmarshal([]byte(raw), &lance))

	assert.Equal(t, models.StatusRecebido, lance.Status)
	assert.True(t, lance.CodigoVerificado)
	assert.False(t, lance.CodigoVerificadoDevolucao)
	assert.Equal(t, "149.90", lance.Preco.StringFixed(2))
	assert.Equal(t, "Fone", lance.Produto.Nome)
}
