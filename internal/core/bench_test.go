package core

import (
	"fmt"
	"testing"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	hub := startHub(b)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("client-%d", i), 64)
		_ = hub.Connect(c.Name, c)
		clients = append(clients, c)
	}

	// Drain all but the first recipient to avoid outbox backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for {
				select {
				case <-cl.Events:
				case <-cl.Done():
					return
				}
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Broadcast("payload")
		<-target.Events
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
func BenchmarkBroadcast_500(b *testing.B) { benchmarkBroadcast(b, 500) }
