package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/pkg/queue"
)

type Worker struct {
	service *Service
}

func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

func (w *Worker) HandleSendEmail(ctx context.Context, task *asynq.Task) error {
	var email Email
	if err := json.Unmarshal(task.Payload(), &email); err != nil {
		return fmt.Errorf("failed to unmarshal email: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.service.SendDirect(ctx, &email); err != nil {
		return err
	}

	log.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Int("attachments", len(email.Attachments)).
		Msg("Email sent")
	return nil
}

func (w *Worker) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeEmailSend, w.HandleSendEmail)
}
