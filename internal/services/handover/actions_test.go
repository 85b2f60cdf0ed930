package handover_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"posto/internal/domain/models"
	"posto/internal/services/handover"
)

func TestActions(t *testing.T) {
	tests := []struct {
		name  string
		lance models.Lance
		want  []handover.Action
	}{
		{
			name:  "espera",
			lance: models.Lance{Status: models.StatusEspera},
			want:  []handover.Action{handover.ActionReceber},
		},
		{
			name:  "recebido without confirmed code",
			lance: models.Lance{Status: models.StatusRecebido},
			want: []handover.Action{
				handover.ActionEnviarCodigo,
				handover.ActionConfirmarCodigo,
				handover.ActionNegar,
			},
		},
		{
			name:  "recebido with confirmed code",
			lance: models.Lance{Status: models.StatusRecebido, CodigoVerificado: true},
			want:  []handover.Action{handover.ActionEntregar, handover.ActionNegar},
		},
		{
			name:  "recusado without confirmed return code",
			lance: models.Lance{Status: models.StatusRecusado},
			want: []handover.Action{
				handover.ActionEnviarCodigoDevolucao,
				handover.ActionConfirmarCodigoDevolucao,
			},
		},
		{
			name:  "recusado with confirmed return code",
			lance: models.Lance{Status: models.StatusRecusado, CodigoVerificadoDevolucao: true},
			want:  []handover.Action{handover.ActionDevolver},
		},
		{
			name:  "entregue is terminal",
			lance: models.Lance{Status: models.StatusEntregue, CodigoVerificado: true},
			want:  nil,
		},
		{
			name:  "devolvido is terminal",
			lance: models.Lance{Status: models.StatusDevolvido, CodigoVerificadoDevolucao: true},
			want:  nil,
		},
		{
			name:  "unknown status exposes nothing",
			lance: models.Lance{Status: "pendente"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handover.Actions(tt.lance))
		})
	}
}

func TestActions_DeliveryAlwaysGatedByCode(t *testing.T) {
	lance := models.Lance{Status: models.StatusRecebido}

	assert.False(t, handover.Allowed(lance, handover.ActionEntregar))

	lance.CodigoVerificado = true
	assert.True(t, handover.Allowed(lance, handover.ActionEntregar))
}

func TestActions_ReturnCodeDoesNotUnlockDelivery(t *testing.T) {
	// The return-flow flag must not leak into the pickup flow.
	lance := models.Lance{Status: models.StatusRecebido, CodigoVerificadoDevolucao: true}

	assert.False(t, handover.Allowed(lance, handover.ActionEntregar))
	assert.False(t, handover.Allowed(lance, handover.ActionDevolver))
}
