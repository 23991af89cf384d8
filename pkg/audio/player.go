package audio

import (
	"bytes"
	"fmt"

	"github.com/hajimehoshi/oto/v2"
)

// Player plays a clip through the default output device. Offline
// routines use it so the operator hears the track the choreography is
// timed against.
type Player struct {
	ctx    *oto.Context
	player oto.Player
}

// NewPlayer prepares playback of a clip.
func NewPlayer(clip *Clip) (*Player, error) {
	ctx, ready, err := oto.NewContext(clip.SampleRate, 1, 2)
	if err != nil {
		return nil, fmt.Errorf("audio: output device: %w", err)
	}
	<-ready

	// oto consumes little-endian int16 PCM.
	pcm := make([]byte, len(clip.Samples)*2)
	for i, s := range clip.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}

	return &Player{ctx: ctx, player: ctx.NewPlayer(bytes.NewReader(pcm))}, nil
}

// Play starts playback without blocking.
func (p *Player) Play() {
	p.player.Play()
}

// Stop halts playback and releases the player.
func (p *Player) Stop() error {
	return p.player.Close()
}
