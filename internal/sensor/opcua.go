package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"
)

// OPCUAOptions describe a pressure tag exposed by an OPC UA server.
type OPCUAOptions struct {
	Endpoint       string
	NodeID         string
	SecurityMode   string
	SecurityPolicy string
	Username       string
	Password       string
	RequestTimeout time.Duration
}

// OPCUA reads a single node's value attribute on demand. The client is
// connected lazily on first read and reused afterwards.
type OPCUA struct {
	opts   OPCUAOptions
	nodeID *ua.NodeID
	logger zerolog.Logger

	clientMux sync.Mutex
	client    *opcua.Client
}

// NewOPCUA builds an OPC UA pressure source.
func NewOPCUA(opts OPCUAOptions, logger zerolog.Logger) (*OPCUA, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("opcua endpoint not configured")
	}
	nodeID, err := ua.ParseNodeID(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", opts.NodeID, err)
	}
	return &OPCUA{
		opts:   opts,
		nodeID: nodeID,
		logger: logger.With().Str("component", "sensor_opcua").Logger(),
	}, nil
}

// Read fetches the node's current value.
func (o *OPCUA) Read(ctx context.Context) (float64, error) {
	ctx, cancel := withTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return 0, err
	}

	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: o.nodeID, AttributeID: ua.AttributeIDValue},
		},
	}

	resp, err := client.Read(ctx, req)
	if err != nil {
		o.dropClient()
		return 0, fmt.Errorf("opcua read: %w", err)
	}
	if len(resp.Results) == 0 {
		return 0, errors.New("opcua read: empty result")
	}
	result := resp.Results[0]
	if result.Status != ua.StatusOK {
		return 0, fmt.Errorf("opcua read: status %s", result.Status)
	}

	value, ok := variantToFloat(result.Value)
	if !ok {
		return 0, fmt.Errorf("opcua read: unsupported value type %T", result.Value.Value())
	}
	return value, nil
}

// Kind implements Source.
func (o *OPCUA) Kind() string { return "opcua" }

// Close tears down the underlying client, if connected.
func (o *OPCUA) Close(ctx context.Context) error {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()
	if o.client == nil {
		return nil
	}
	err := o.client.Close(ctx)
	o.client = nil
	return err
}

func (o *OPCUA) getClient(ctx context.Context) (*opcua.Client, error) {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()

	if o.client != nil {
		return o.client, nil
	}

	client, err := opcua.NewClient(o.opts.Endpoint, o.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect %s: %w", o.opts.Endpoint, err)
	}

	o.logger.Info().Str("endpoint", o.opts.Endpoint).Str("node", o.opts.NodeID).Msg("opcua session established")
	o.client = client
	return client, nil
}

// dropClient forgets a broken session so the next read reconnects.
func (o *OPCUA) dropClient() {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()
	if o.client != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = o.client.Close(closeCtx)
		cancel()
		o.client = nil
	}
}

func (o *OPCUA) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(o.opts.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(o.opts.SecurityPolicy)),
		opcua.AutoReconnect(true),
	}
	if o.opts.Username != "" {
		opts = append(opts, opcua.AuthUsername(o.opts.Username, o.opts.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}
