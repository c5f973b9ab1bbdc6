package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
)

// Handler обрабатывает тело одной доставки. Ошибка приводит к nack,
// requeue определяет, вернуть ли сообщение в очередь.
type Handler func(ctx context.Context, body []byte) (requeue bool, err error)

// Consume запускает потребителя очереди queueName. Доставки обрабатываются
// параллельно, не больше prefetch одновременно, до отмены ctx или закрытия канала.
func Consume(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler Handler) error {
	const op = "rabbitmq.Consume"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					requeue, err := handler(ctx, d.Body)
					if err != nil {
						log.Error("handler failed", sl.Err(err), slog.Bool("requeue", requeue))
						if nackErr := d.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
