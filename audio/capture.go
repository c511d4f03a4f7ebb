package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/RyanBlaney/sonido-follow/logging"
)

// CaptureConfig selects the input device and block layout
type CaptureConfig struct {
	SampleRate    int     `json:"sample_rate" yaml:"sample_rate"`
	BlockSize     int     `json:"block_size" yaml:"block_size"`
	BufferSeconds float64 `json:"buffer_seconds" yaml:"buffer_seconds"`
	Device        string  `json:"device" yaml:"device"` // empty for the system default
}

// DefaultCaptureConfig captures 44.1 kHz mono in 256-sample blocks
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 44100, BlockSize: 256, BufferSeconds: 5}
}

// Capture records mono float32 audio from an input device into a ring
// buffer. The device callback only copies into the buffer and never blocks.
type Capture struct {
	bufferedSource

	config CaptureConfig
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	frames    atomic.Uint64
	callbacks atomic.Uint64
	short     atomic.Uint64

	mu      sync.Mutex
	running bool
	logger  logging.Logger
}

// NewCapture initialises the audio backend and opens the configured device
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_capture",
	})

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("Backend message", logging.Fields{"message": message})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	c := &Capture{
		bufferedSource: newBufferedSource(cfg.SampleRate, cfg.BlockSize, cfg.BufferSeconds),
		config:         cfg,
		ctx:            ctx,
		logger:         logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockSize)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.Device != "" {
		info, err := findDevice(ctx, cfg.Device)
		if err != nil {
			c.release()
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.callbacks.Add(1)
			if len(input) < 4 {
				c.short.Add(1)
				return
			}
			samples := bytesToFloat32(input)
			c.buffer.Write(samples)
			c.frames.Add(uint64(len(samples)))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	c.device = device

	return c, nil
}

// Start begins streaming
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	c.running = true

	c.logger.Info("Audio capture started", logging.Fields{
		"sample_rate": c.config.SampleRate,
		"block_size":  c.config.BlockSize,
		"latency_ms":  float64(c.config.BlockSize) / float64(c.config.SampleRate) * 1000,
	})
	return nil
}

// Stop pauses streaming
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	c.logger.Info("Audio capture stopped", logging.Fields{
		"frames":         c.frames.Load(),
		"callbacks":      c.callbacks.Load(),
		"empty_callback": c.short.Load(),
	})
	return nil
}

// Frames returns the number of samples captured so far
func (c *Capture) Frames() uint64 {
	return c.frames.Load()
}

// Close stops the device and releases the backend
func (c *Capture) Close() error {
	err := c.Stop()
	c.release()
	return err
}

func (c *Capture) release() {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}

// InputDevices lists the names of the available capture devices
func InputDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	list, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	names := make([]string, 0, len(list))
	for i := range list {
		name := list[i].Name()
		if name == "" {
			name = "Unknown input"
		}
		names = append(names, name)
	}
	return names, nil
}

func findDevice(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	list, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	for i := range list {
		if list[i].Name() == name {
			info := list[i]
			return &info, nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", name)
}

// bytesToFloat32 reinterprets the callback's byte buffer without copying;
// the ring buffer copies out of it before the callback returns
func bytesToFloat32(b []byte) []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
