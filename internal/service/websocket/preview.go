package websocket

import (
	"fmt"
	"time"

	"github.com/shirts/opencv-tracking/internal/service/ai"
)

// Preview presents annotated frames to WebSocket viewers instead of a
// desktop window.
type Preview struct {
	hub *HubService
}

func NewPreview(hub *HubService) *Preview {
	return &Preview{hub: hub}
}

// Show encodes the frame and hands it to the hub. Nothing is encoded while
// no viewer is connected.
func (p *Preview) Show(f ai.Frame) error {
	if p.hub.GetClientCount() == 0 {
		return nil
	}

	data, err := f.EncodeJPEG()
	if err != nil {
		return fmt.Errorf("encode preview frame: %w", err)
	}
	p.hub.Broadcast(data)
	return nil
}

// Pump waits delayMs. There are no key events on this surface.
func (p *Preview) Pump(delayMs int) int {
	if delayMs < 1 {
		delayMs = 1
	}
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	return -1
}

func (p *Preview) Close() error {
	return nil
}
