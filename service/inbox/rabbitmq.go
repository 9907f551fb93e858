package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/xerrors"
)

type rabbitMQService struct {
	CanxCtx       context.Context
	SubsCtx       context.Context
	SubsCancel    context.CancelFunc
	UploadChannel chan []model.Upload
	Accept        Accept

	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	consumerTag string
}

// NewRabbitMQ consumes upload notifications ({"path": ..., "filename": ...})
// from a durable queue. Messages are acknowledged once handed to the
// subscriber; malformed or rejected messages are dropped, never requeued.
func NewRabbitMQ(canxCtx context.Context, cfgSvc config.IService, accept Accept) (IService, error) {
	conn, err := amqp.Dial(cfgSvc.GetRabbitMQURL())
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	queue := cfgSvc.GetRabbitMQQueue()
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &rabbitMQService{
		CanxCtx:       canxCtx,
		UploadChannel: make(chan []model.Upload),
		Accept:        accept,
		conn:          conn,
		channel:       ch,
		queue:         queue,
	}, nil
}

func (svc *rabbitMQService) Publish(uploads []model.Upload) error {
	for _, upload := range uploads {
		body, err := json.Marshal(upload)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(svc.CanxCtx, 5*time.Second)
		err = svc.channel.PublishWithContext(ctx, "", svc.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("publish upload %s: %w", upload.Path, err)
		}
	}
	return nil
}

func (svc *rabbitMQService) Subscribe() (<-chan []model.Upload, error) {
	if svc.SubsCtx != nil {
		return nil, xerrors.New("inbox rabbitmq service. child context is not nil. Unsubscribe first")
	}

	subsContext, subsCancel := context.WithCancel(svc.CanxCtx)

	svc.consumerTag = "dfd-" + uuid.NewString()
	deliveries, err := svc.channel.Consume(
		svc.queue,
		svc.consumerTag,
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		subsCancel()
		return nil, fmt.Errorf("consume: %w", err)
	}

	svc.SubsCtx = subsContext
	svc.SubsCancel = subsCancel

	go func(subsCtx context.Context) {
		for {
			select {
			case <-subsCtx.Done():
				lgr.Logger.Info(
					"inbox rabbitmq subscription cancelled",
				)
				return
			case d, ok := <-deliveries:
				if !ok {
					lgr.Logger.Info("inbox rabbitmq delivery channel closed")
					return
				}
				svc.deliver(subsCtx, d)
			}
		}
	}(subsContext)

	return svc.UploadChannel, nil
}

func (svc *rabbitMQService) deliver(ctx context.Context, d amqp.Delivery) {
	var upload model.Upload
	if err := json.Unmarshal(d.Body, &upload); err != nil || upload.Path == "" {
		lgr.Logger.Warn("dropping malformed upload message",
			slog.Uint64("deliveryTag", d.DeliveryTag),
			slog.Any("error", err),
		)
		_ = d.Nack(false, false)
		return
	}

	if upload.Filename == "" {
		upload.Filename = filepath.Base(upload.Path)
	}

	if !svc.Accept(upload.Filename) {
		lgr.Logger.Warn("dropping upload with unsupported format", slog.String("file", upload.Filename))
		_ = d.Nack(false, false)
		return
	}

	if upload.ReceivedAt.IsZero() {
		upload.ReceivedAt = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		// leave it on the queue for the next subscriber
		_ = d.Nack(false, true)
	case svc.UploadChannel <- []model.Upload{upload}:
		_ = d.Ack(false)
	}
}

func (svc *rabbitMQService) Unsubscribe() error {
	if svc.SubsCtx == nil {
		return xerrors.New("No subscribed yet. Subscribe first")
	}

	svc.cleanup()
	return nil
}

func (svc *rabbitMQService) cleanup() {
	if svc.SubsCancel == nil {
		return
	}

	if err := svc.channel.Cancel(svc.consumerTag, false); err != nil {
		lgr.Logger.Warn("inbox rabbitmq consumer cancel failed", slog.Any("error", err))
	}
	svc.SubsCancel()
	svc.SubsCtx = nil
	svc.SubsCancel = nil
}

func (svc *rabbitMQService) Close() error {
	svc.cleanup()
	if svc.channel != nil {
		svc.channel.Close()
	}
	if svc.conn != nil {
		return svc.conn.Close()
	}
	return nil
}
