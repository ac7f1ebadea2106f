package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// LiveSession is the part of *genai.Session the adapter relies on.
type LiveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// Connector dials live sessions.
type Connector interface {
	Connect(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (LiveSession, error)
}

// LiveConnector dials through a genai client. A nil client yields a
// connector that fails every dial with ErrMissingAPIKey.
type LiveConnector struct {
	live *genai.Live
}

func NewLiveConnector(client *genai.Client) *LiveConnector {
	if client == nil {
		return &LiveConnector{}
	}
	return &LiveConnector{live: client.Live}
}

func (c *LiveConnector) Connect(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (LiveSession, error) {
	if c.live == nil {
		return nil, ErrMissingAPIKey
	}
	session, err := c.live.Connect(ctx, model, cfg)
	if err != nil {
		return nil, err
	}
	return session, nil
}
