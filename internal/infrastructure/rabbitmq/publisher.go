// Package rabbitmq は予約イベントを RabbitMQ のトピックエクスチェンジへ送信する
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

var ErrPublisherClosed = errors.New("パブリッシャーは停止済みです")

// Publisher は予約イベントを送信する
// amqp.Channel はスレッドセーフではないため送信はミューテックスで直列化する
type Publisher struct {
	conn     *amqp.Connection
	exchange string

	mu     sync.Mutex
	ch     *amqp.Channel
	closed bool
}

// NewPublisher はブローカーに接続し、durable なトピックエクスチェンジを宣言する
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗しました: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("エクスチェンジ宣言に失敗しました: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish はイベント種別をルーティングキーとして送信する
func (p *Publisher) Publish(ctx context.Context, event reservation.Event) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.ch.IsClosed() {
		// ブローカー側で閉じられたチャネルは作り直す
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("チャネル再作成に失敗しました: %w", err)
		}
		p.ch = ch
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("イベント送信に失敗しました: %w", err)
	}
	logger.Debug("予約イベントを送信しました",
		zap.String("type", string(event.Type)),
		zap.String("reservation_id", event.ReservationID),
	)
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(p.ch.Close(), p.conn.Close())
}

func newPublishing(event reservation.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("イベントのシリアライズに失敗しました: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ReservationID + ":" + string(event.Type),
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}, nil
}
