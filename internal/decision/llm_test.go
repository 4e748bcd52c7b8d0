package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaslov/equitybot/pkg/models"
)

type stubProvider struct {
	response string
	err      error
	enabled  bool
	lastUser string
}

func (s *stubProvider) GetName() string  { return "stub" }
func (s *stubProvider) IsEnabled() bool  { return s.enabled }
func (s *stubProvider) Complete(ctx context.Context, system, user string) (string, error) {
	s.lastUser = user
	return s.response, s.err
}

type stubRenderer struct{}

func (stubRenderer) ExecuteTemplate(name string, data any) (string, error) {
	return "analyze " + name, nil
}

func (stubRenderer) TemplateExists(name string) bool { return true }

func llmInput() Input {
	return Input{
		Symbol:   "MSFT",
		Snapshot: snapshotAt(410),
		Indicators: &models.Indicators{
			MA20:          405,
			MA50:          395,
			RSI:           58,
			ChangePercent: 0.9,
		},
	}
}

func TestLLMDecider(t *testing.T) {
	ctx := context.Background()

	t.Run("parses structured reply", func(t *testing.T) {
		provider := &stubProvider{
			enabled:  true,
			response: "ACTION: BUY\nCONFIDENCE: 7\nREASONING: trend intact\nQUANTITY: 2",
		}
		decider := NewLLMDecider(provider, stubRenderer{})

		d, err := decider.Decide(ctx, llmInput())
		require.NoError(t, err)
		assert.Equal(t, models.ActionBuy, d.Action)
		assert.Equal(t, 7, d.Confidence)
		assert.Equal(t, 2, d.Quantity)
	})

	t.Run("disabled provider errors", func(t *testing.T) {
		decider := NewLLMDecider(&stubProvider{enabled: false}, stubRenderer{})
		_, err := decider.Decide(ctx, llmInput())
		assert.Error(t, err)
	})

	t.Run("unparseable reply errors", func(t *testing.T) {
		provider := &stubProvider{enabled: true, response: "I cannot decide."}
		decider := NewLLMDecider(provider, stubRenderer{})
		_, err := decider.Decide(ctx, llmInput())
		assert.Error(t, err)
	})
}
