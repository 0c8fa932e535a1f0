package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/gcp"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const pingTimeout = 10 * time.Second

var (
	errNoProject     = errors.New("gcp project id is required")
	errNoTopic       = errors.New("pubsub orders topic is required")
	errNotConfigured = errors.New("pubsub client not initialized")
)

// Client holds the orders topic and the two consumer subscriptions that hang
// off it. Names may be short ids or full resource names.
type Client struct {
	ps      *pubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	c, err := newClient(ctx, gcpCfg.ProjectID, cfg, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.topicName()), "pubsub client ready")
	}
	return c, nil
}

func newClient(ctx context.Context, project string, cfg config.PubSubConfig, opts ...option.ClientOption) (*Client, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, errNoProject
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errNoTopic
	}
	ps, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Client{ps: ps, project: project, cfg: cfg}, nil
}

// Ping confirms the orders topic and every configured subscription exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicName()})
	if err != nil {
		return describe("topic", c.cfg.OrdersTopic, err)
	}
	for _, name := range []string{c.cfg.NotificationSubscription, c.cfg.AnalyticsSubscription} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		_, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: qualify(c.project, "subscriptions", name),
		})
		if err != nil {
			return describe("subscription", name, err)
		}
	}
	return nil
}

// Close flushes pending publishes before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.ps.Close()
}

// NotificationSubscription is nil when the subscription is not configured.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.subscriber(c.cfg.NotificationSubscription)
}

// AnalyticsSubscription is nil when the subscription is not configured.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.subscriber(c.cfg.AnalyticsSubscription)
}

// Send publishes msg to topic and waits for the server assigned id.
// Publishers are created once per topic and reused.
func (c *Client) Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
	p, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, msg).Get(ctx)
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.ps == nil {
		return nil, errNotConfigured
	}
	name := qualify(c.project, "topics", topic)
	if name == "" {
		return nil, fmt.Errorf("topic %q is not publishable", topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[name]; ok {
		return p, nil
	}
	if c.publishers == nil {
		c.publishers = make(map[string]*pubsub.Publisher)
	}
	p := c.ps.Publisher(name)
	c.publishers[name] = p
	return p, nil
}

func (c *Client) subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	full := qualify(c.project, "subscriptions", name)
	if full == "" {
		return nil
	}
	return c.ps.Subscriber(full)
}

func (c *Client) topicName() string {
	return qualify(c.project, "topics", c.cfg.OrdersTopic)
}

// qualify expands a short id to projects/<project>/<collection>/<id>. A name
// that is already a resource path in that collection is returned as is.
func qualify(project, collection, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || project == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+collection+"/") {
		return name
	}
	return "projects/" + project + "/" + collection + "/" + name
}

func describe(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("check %s %q: %w", kind, name, err)
}
