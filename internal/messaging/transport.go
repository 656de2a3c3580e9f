package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/network"
)

// wireFlagRaw/wireFlagDeflate prefix every NATS payload byte, so a
// receiver on an older or differently-configured process can still tell
// compressed envelopes from plain ones (spec §4.7: payloads above a size
// threshold are compressed).
const (
	wireFlagRaw     byte = 0
	wireFlagDeflate byte = 1
)

const (
	directSubjectPrefix = "vibe.messages.direct."
	broadcastSubject    = "vibe.messages.broadcast"
)

// wireMessage is the JSON envelope published to NATS; it carries just
// enough of domain.Message for a remote process to reconstruct delivery
// without importing the domain package's constructors (which enforce
// creation-time invariants irrelevant to a received message).
type wireMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Priority  string `json:"priority"`
}

// Transport publishes and subscribes to Messages across coordinator and
// worker processes over NATS. Grounded on internal/nats/client.go's
// reconnect-handling Client, narrowed from general pub/sub/request to the
// two subjects this package needs.
type Transport struct {
	conn       *nc.Conn
	compressor *network.Compressor
}

// SetCompressor attaches internal/network's deflate compressor so
// payloads above its threshold are shrunk before they cross the wire
// (spec §4.7). Safe to call once before Publish/SubscribeAgent see
// traffic; nil (the zero value) disables compression.
func (t *Transport) SetCompressor(c *network.Compressor) {
	t.compressor = c
}

// Dial connects to the NATS server at url with indefinite reconnect,
// matching internal/nats/client.go's NewClient.
func Dial(url string) (*Transport, error) {
	opts := []nc.Option{
		nc.ReconnectWait(2 * time.Second),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
			if err != nil {
				fmt.Printf("[MESSAGING] disconnected: %v\n", err)
			}
		}),
		nc.ReconnectHandler(func(conn *nc.Conn) {
			fmt.Printf("[MESSAGING] reconnected to %s\n", conn.ConnectedUrl())
		}),
		nc.ClosedHandler(func(_ *nc.Conn) {
			fmt.Println("[MESSAGING] connection closed")
		}),
	}
	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Transport{conn: conn}, nil
}

func (t *Transport) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}

func (t *Transport) IsConnected() bool {
	return t.conn != nil && t.conn.IsConnected()
}

// Publish sends m to its recipient's direct subject, or to the broadcast
// subject when m.IsBroadcast().
func (t *Transport) Publish(m wireMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	framed, err := t.frame(data)
	if err != nil {
		return err
	}
	subject := broadcastSubject
	if m.Recipient != "" {
		subject = directSubjectPrefix + m.Recipient
	}
	if err := t.conn.Publish(subject, framed); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// frame prepends the raw/deflate flag byte, compressing data first when a
// Compressor is attached and data clears its threshold.
func (t *Transport) frame(data []byte) ([]byte, error) {
	if t.compressor == nil {
		return append([]byte{wireFlagRaw}, data...), nil
	}
	compressed, ok, err := t.compressor.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compress message: %w", err)
	}
	if !ok {
		return append([]byte{wireFlagRaw}, data...), nil
	}
	return append([]byte{wireFlagDeflate}, compressed...), nil
}

// unframe strips the flag byte written by frame, inflating the remainder
// when it was compressed.
func (t *Transport) unframe(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	flag, body := data[0], data[1:]
	if flag == wireFlagDeflate {
		if t.compressor == nil {
			return nil, fmt.Errorf("received compressed message but no compressor is configured")
		}
		return t.compressor.Decompress(body)
	}
	return body, nil
}

// SubscribeAgent delivers every message addressed to agentID directly,
// plus every broadcast, to handler.
func (t *Transport) SubscribeAgent(agentID string, handler func(wireMessage)) (*nc.Subscription, *nc.Subscription, error) {
	decode := func(msg *nc.Msg) {
		data, err := t.unframe(msg.Data)
		if err != nil {
			fmt.Printf("[MESSAGING] WARNING: failed to unframe message on %s: %v\n", msg.Subject, err)
			return
		}
		var wm wireMessage
		if err := json.Unmarshal(data, &wm); err != nil {
			fmt.Printf("[MESSAGING] WARNING: failed to decode message on %s: %v\n", msg.Subject, err)
			return
		}
		handler(wm)
	}

	directSub, err := t.conn.Subscribe(directSubjectPrefix+agentID, decode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to direct subject for %s: %w", agentID, err)
	}
	broadcastSub, err := t.conn.Subscribe(broadcastSubject, decode)
	if err != nil {
		directSub.Unsubscribe()
		return nil, nil, fmt.Errorf("failed to subscribe to broadcast subject: %w", err)
	}
	return directSub, broadcastSub, nil
}

func (t *Transport) Flush() error {
	if err := t.conn.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	return nil
}
