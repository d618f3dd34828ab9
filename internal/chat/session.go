package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Streamer opens a streamed completion for the given conversation.
type Streamer interface {
	Stream(ctx context.Context, messages []Message) (io.ReadCloser, error)
}

// Session drives one conversation: it sends the transcript and folds the
// streamed reply back into it.
type Session struct {
	streamer   Streamer
	transcript *Transcript
	log        *zap.SugaredLogger
	chunkSize  int
}

func NewSession(streamer Streamer, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		streamer:   streamer,
		transcript: NewTranscript(),
		log:        log,
		chunkSize:  4096,
	}
}

func (s *Session) Transcript() *Transcript { return s.transcript }

// Send appends text as a user turn and streams the reply. onUpdate, if set,
// is called with the assistant message each time it grows. On any failure
// the fallback reply is appended and the error returned; partial content
// already applied is kept.
func (s *Session) Send(ctx context.Context, text string, onUpdate func(Message)) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.transcript.AppendUser(text)
	defer s.transcript.Finish()

	if err := s.stream(ctx, onUpdate); err != nil {
		s.log.Errorf("[Chat] exchange failed: %v", err)
		s.transcript.Finish()
		msg := s.transcript.AppendAssistant(FallbackReply)
		if onUpdate != nil {
			onUpdate(msg)
		}
		return err
	}
	return nil
}

func (s *Session) stream(ctx context.Context, onUpdate func(Message)) error {
	body, err := s.streamer.Stream(ctx, s.transcript.Outbound())
	if err != nil {
		return err
	}
	defer body.Close()

	var asm Assembler
	buf := make([]byte, s.chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 && asm.Feed(buf[:n]) {
			msg := s.transcript.ApplyAssistant(asm.Content())
			if onUpdate != nil {
				onUpdate(msg)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}
	if asm.Dropped() > 0 {
		s.log.Warnf("[Chat] dropped %d malformed stream events", asm.Dropped())
	}
	return nil
}
