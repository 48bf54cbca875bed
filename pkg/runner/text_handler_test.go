package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje/pkg/domain"
)

func TestTextHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := h.Output(context.Background(), &domain.TurnResponse{
		Reply: "Estas son nuestras habitaciones.",
		Menu:  []domain.MenuEntry{{ID: "HAB_A", Label: "Suite A"}, {ID: "HAB_B", Label: "Suite B"}},
		CTAs:  []string{"Ver disponibilidad", "Hablar con recepción"},
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Rendered: Estas son nuestras habitaciones.")
	assert.Contains(t, output, "1. Suite A")
	assert.Contains(t, output, "2. Suite B")
	assert.Contains(t, output, "[Ver disponibilidad | Hablar con recepción]")
}

func TestTextHandler_InputPicksMenuEntry(t *testing.T) {
	h := NewTextHandler(strings.NewReader("2\n7\nspa\n"), io.Discard)
	require.NoError(t, h.Output(context.Background(), &domain.TurnResponse{
		Menu: []domain.MenuEntry{{ID: "HAB_A", Label: "Suite A"}, {ID: "HAB_B", Label: "Suite B"}},
	}))
	ctx := context.Background()

	in, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Input{Message: "Suite B", Source: domain.SourceMenu, ItemID: "HAB_B"}, in)

	in, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Input{Message: "7", Source: domain.SourceUser}, in, "out of range numbers stay text")

	in, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spa", in.Message)

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputSkipsRejected(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "8")
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("\nesto es demasiado largo\nspa\n"), out)

	in, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "spa", in.Message)
	assert.Contains(t, out.String(), "Error:")
}

func TestTextHandler_InputHonorsContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
