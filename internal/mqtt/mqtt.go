package mqtt

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/internal/link"
	"github.com/realitycrawler/crawlink/pkg/core"
	pkglink "github.com/realitycrawler/crawlink/pkg/link"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Broker   string `yaml:"broker"`
			Topic    string `yaml:"topic"`
			ClientID string `yaml:"client_id"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"mqtt"`
	}

	cfg.Mod.Topic = "crawlink"

	app.LoadConfig(&cfg)

	if cfg.Mod.Broker == "" {
		return
	}

	if cfg.Mod.ClientID == "" {
		cfg.Mod.ClientID = "crawlink-" + core.RandString(8)
	}

	log = app.GetLogger("mqtt")

	bridge = NewBridge(cfg.Mod.Topic, link.Session, pkglink.SenderFunc(link.Send), log)

	opts := mqtt.NewClientOptions().AddBroker(cfg.Mod.Broker).
		SetClientID(cfg.Mod.ClientID).
		SetUsername(cfg.Mod.Username).
		SetPassword(cfg.Mod.Password).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetWill(bridge.StatusTopic(), "offline", 1, true).
		SetOnConnectHandler(bridge.OnConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("[mqtt] connection lost")
		})

	client = mqtt.NewClient(opts)

	// connect in background, the broker may come up later
	go func() {
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn().Err(token.Error()).Str("broker", cfg.Mod.Broker).Msg("[mqtt] connect")
		}
	}()
}

var client mqtt.Client
var bridge *Bridge
var log = zerolog.Nop()

func Close() {
	if client != nil && client.IsConnected() {
		client.Publish(bridge.StatusTopic(), 1, true, "offline").WaitTimeout(time.Second)
		client.Disconnect(1000)
	}
}

// Bridge publishes session changes and forwards commands to the crawler.
type Bridge struct {
	topic   string
	session *pkglink.Session
	sender  pkglink.Sender
	log     zerolog.Logger

	cancel func()
}

func NewBridge(topic string, session *pkglink.Session, sender pkglink.Sender, log zerolog.Logger) *Bridge {
	return &Bridge{topic: topic, session: session, sender: sender, log: log}
}

func (b *Bridge) StatusTopic() string  { return b.topic + "/status" }
func (b *Bridge) SessionTopic() string { return b.topic + "/session" }
func (b *Bridge) CommandTopic() string { return b.topic + "/command" }

func (b *Bridge) OnConnect(client mqtt.Client) {
	b.log.Info().Str("topic", b.topic).Msg("[mqtt] connected")

	client.Publish(b.StatusTopic(), 1, true, "online")

	if token := client.Subscribe(b.CommandTopic(), 1, b.OnCommand); token.Wait() && token.Error() != nil {
		b.log.Warn().Err(token.Error()).Msg("[mqtt] subscribe")
	}

	// resubscribe on every reconnect
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = b.session.Watch(func(state pkglink.State) {
		b.Publish(client, state)
	})

	b.Publish(client, b.session.Snapshot())
}

func (b *Bridge) Publish(client mqtt.Client, state pkglink.State) {
	payload, err := json.Marshal(state)
	if err != nil {
		b.log.Warn().Err(err).Msg("[mqtt] marshal")
		return
	}
	client.Publish(b.SessionTopic(), 1, true, payload)
}

func (b *Bridge) OnCommand(_ mqtt.Client, msg mqtt.Message) {
	cmd := pkglink.ParseCommand(msg.Payload())
	if cmd == "" || len(cmd) >= pkglink.DefaultThreshold {
		b.log.Debug().Int("size", len(msg.Payload())).Msg("[mqtt] wrong command")
		return
	}

	b.log.Debug().Str("cmd", string(cmd)).Msg("[mqtt] command")

	_ = b.sender.Send(cmd)
}
