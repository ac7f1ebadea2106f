package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"hotseat/internal/domain"
	"hotseat/internal/ports"
)

var (
	ErrDeviceClosed  = errors.New("output device is closed")
	ErrPlaybackQueue = errors.New("output device queue is full")
)

// FFMPEGPlayback plays 16-bit PCM through ffmpeg's output muxers.
type FFMPEGPlayback struct {
	command string
	probe   time.Duration
	queue   int
}

func NewFFMPEGPlayback(command string) *FFMPEGPlayback {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGPlayback{command: command, probe: 100 * time.Millisecond, queue: 512}
}

func (p *FFMPEGPlayback) Open(ctx context.Context, cfg ports.OutputConfig) (ports.OutputDevice, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = domain.PlaybackSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pulse"
	}
	if cfg.OutputDevice == "" {
		cfg.OutputDevice = "default"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "-",
		"-f", cfg.OutputFormat,
		cfg.OutputDevice,
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create playback stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = stdin.Close()
		if err != nil {
			return nil, fmt.Errorf("playback exited before it started: %w: %s", err, trimOutput(stderr.String()))
		}
		return nil, errors.New("playback exited before it started")
	case <-time.After(p.probe):
	}

	out := &ffmpegOutput{
		stdin:   stdin,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
		opened:  time.Now(),
		chunks:  make(chan []byte, p.queue),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
	go out.writeLoop()
	return out, nil
}

type ffmpegOutput struct {
	stdin  io.WriteCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	opened  time.Time
	chunks  chan []byte
	done    chan struct{}
	flushed chan struct{}

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
	closeErr  error
}

// Now uses the monotonic wall clock since the device opened.
func (o *ffmpegOutput) Now() time.Duration {
	return time.Since(o.opened)
}

func (o *ffmpegOutput) Play(chunk domain.PlaybackChunk) error {
	if err := o.writeErr(); err != nil {
		return err
	}
	data := PackPCM16(chunk.Samples)
	select {
	case <-o.done:
		return ErrDeviceClosed
	default:
	}
	select {
	case o.chunks <- data:
		return nil
	case <-o.done:
		return ErrDeviceClosed
	default:
		return ErrPlaybackQueue
	}
}

// Close kills the player; queued chunks that have not been written are dropped.
func (o *ffmpegOutput) Close() error {
	o.closeOnce.Do(func() {
		close(o.done)
		_ = o.stdin.Close()
		o.closeErr = killProcess(o.process, o.waitErr)
		<-o.flushed
	})
	return o.closeErr
}

// killProcess ends the player at once. Audio still buffered inside ffmpeg is
// meant to be thrown away, so there is no graceful interrupt first.
func killProcess(process *os.Process, waitErr <-chan error) error {
	if process != nil {
		_ = process.Kill()
	}
	if err, ok := <-waitErr; ok {
		return normalizeStopErr(err)
	}
	return nil
}

func (o *ffmpegOutput) writeLoop() {
	defer close(o.flushed)
	for {
		select {
		case <-o.done:
			return
		case data := <-o.chunks:
			if _, err := o.stdin.Write(data); err != nil {
				o.setErr(fmt.Errorf("failed to write playback audio: %w", err))
				return
			}
		}
	}
}

func (o *ffmpegOutput) setErr(err error) {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	if o.err == nil {
		o.err = err
	}
}

func (o *ffmpegOutput) writeErr() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}
