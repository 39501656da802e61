package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valkey-io/valkey-go"
)

// ValkeyNotifier mirrors the update sentinel into Valkey and publishes it so
// readers on other hosts can react without polling the store
type ValkeyNotifier struct {
	client  valkey.Client
	channel string
	key     string
}

// Ensure ValkeyNotifier implements UpdateNotifier
var _ UpdateNotifier = (*ValkeyNotifier)(nil)

// NewValkeyClient connects and pings the server
func NewValkeyClient(ctx context.Context, address, password string) (valkey.Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{address},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey at %s: %w", address, err)
	}

	logrus.Infof("Connected to valkey at %s", address)
	return client, nil
}

// NewValkeyNotifier publishes on channel and stores the timestamp under
// "<channel>:last_updated"
func NewValkeyNotifier(client valkey.Client, channel string) *ValkeyNotifier {
	return &ValkeyNotifier{
		client:  client,
		channel: channel,
		key:     channel + ":last_updated",
	}
}

// NotifyUpdate sets the last-updated key and publishes the new value
func (n *ValkeyNotifier) NotifyUpdate(ctx context.Context, lastUpdated string) error {
	results := n.client.DoMulti(ctx,
		n.client.B().Set().Key(n.key).Value(lastUpdated).Build(),
		n.client.B().Publish().Channel(n.channel).Message(lastUpdated).Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("failed to signal update on %s: %w", n.channel, err)
		}
	}
	return nil
}
