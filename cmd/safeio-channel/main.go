package main

import (
	"flag"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/diag/modbus"
	"github.com/robotalks/safeio/pkg/diag/mqtt"
	"github.com/robotalks/safeio/pkg/env"
	"github.com/robotalks/safeio/pkg/exchange"
	"github.com/robotalks/safeio/pkg/exchange/stream"
	"github.com/robotalks/safeio/pkg/exchange/websocket"
	fx "github.com/robotalks/safeio/pkg/framework"
	"github.com/robotalks/safeio/pkg/link"
	"github.com/robotalks/safeio/pkg/sim"
	"github.com/robotalks/safeio/pkg/telegram"
)

func init() {
	env.SetupFlags()
}

func verifyTelegram(frame []byte) bool {
	t, ok := telegram.FromBytes(frame)
	return ok && t.Verify()
}

// connectExchange connects the twin channel. Channel 1 listens and
// channel 2 dials.
func connectExchange(conf *env.Config) (exchange.PacketReadWriter, error) {
	addr := conf.Exchange
	listen := conf.ChannelID() == channel.Ch1
	if !strings.HasPrefix(addr, "ws://") {
		if listen {
			return stream.Accept(addr)
		}
		return stream.Dial(addr)
	}
	if !listen {
		return websocket.Dial(addr, "http://localhost/")
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	connCh := make(chan *websocket.ReadWriter)
	mux := http.NewServeMux()
	mux.Handle(u.Path, websocket.Handler(func(rw *websocket.ReadWriter) {
		connCh <- rw
		select {}
	}))
	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(u.Host, mux)
	}()
	select {
	case rw := <-connCh:
		return rw, nil
	case err := <-errCh:
		return nil, err
	}
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	ch := conf.ChannelID()
	if !ch.IsValid() {
		glog.Fatalf("invalid channel %d", conf.Channel)
	}
	f, err := conf.LoadDevice()
	if err != nil {
		glog.Fatalf("load device file: %v", err)
	}

	port, err := link.OpenSerial(conf.SerialPort, conf.SerialBaud, telegram.Size, verifyTelegram)
	if err != nil {
		glog.Fatalf("open %s: %v", conf.SerialPort, err)
	}

	glog.Infof("channel %s: waiting for twin on %s", ch, conf.Exchange)
	rw, err := connectExchange(conf)
	if err != nil {
		glog.Fatalf("exchange: %v", err)
	}
	xlink := exchange.NewLink(rw)

	inputs := &sim.Inputs{}
	inputs.Set(0, 0xff)
	dev := device.New(f.DeviceConfig(ch), device.Collaborators{
		Exchange: xlink,
		Host:     port,
		Inputs:   inputs,
		Stack:    &sim.Stack{Inputs: inputs},
		Driver:   &sim.Pins{},
	})

	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.AddRunnable(port, xlink)
	loop.Add(dev)

	if conf.MQTTBrokerURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL)
		if err != nil {
			glog.Fatalf("mqtt: %v", err)
		}
		if err := q.Connect(); err != nil {
			glog.Fatalf("mqtt connect: %v", err)
		}
		defer q.Close()
		mqtt.NewCommander(q, dev).Subscribe()
		loop.Add(mqtt.NewPublisher(q, dev))
	}

	if conf.ModbusEndpoint != "" {
		mbConf := f.Modbus.MirrorConfig(conf.ModbusEndpoint)
		client, err := modbus.Dial(mbConf)
		if err != nil {
			glog.Fatalf("modbus: %v", err)
		}
		defer client.Close()
		loop.Add(modbus.NewMirror(client, dev, mbConf))
	}

	loop.RunOrFail()
}
