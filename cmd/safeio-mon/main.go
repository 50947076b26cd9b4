package main

import (
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/safeio/pkg/diag/mqtt"
	"github.com/robotalks/safeio/pkg/diag/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/safeio/"
	topic   = "+/status"
)

func init() {
	if val := os.Getenv("SAFEIO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic to watch, relative to the prefix.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		msg, err := msgs.Decode(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			msg.String())
	}))
	<-(chan struct{})(nil)
}
