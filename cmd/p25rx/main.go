// Command p25rx wires the six long-lived tasks of §2 together: a
// tuner reader/control pair, the demod pipeline, the receiver task
// (decoder + policy + talkgroup selector), the audio task, and the
// hub's HTTP/SSE server. Flag parsing follows the teacher's stdlib
// flag usage (§6, SPEC_FULL.md §6) rather than a third-party flag
// library.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kchmck/p25rx/internal/audio"
	"github.com/kchmck/p25rx/internal/config"
	"github.com/kchmck/p25rx/internal/demod"
	"github.com/kchmck/p25rx/internal/hub"
	"github.com/kchmck/p25rx/internal/imbestub"
	"github.com/kchmck/p25rx/internal/netsdr"
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/p25stub"
	"github.com/kchmck/p25rx/internal/pool"
	"github.com/kchmck/p25rx/internal/receiver"
	"github.com/kchmck/p25rx/internal/rxmsg"
	"github.com/kchmck/p25rx/internal/tuner"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code (§6): 0 on normal exit, non-zero
// on any initialization error (bind, device open, file open, bad
// gain).
func run() int {
	var (
		ppm        = flag.Int("p", 0, "frequency trim in PPM")
		audioPath  = flag.String("a", "", "audio sink file (required unless -r)")
		gainFlag   = flag.String("g", "auto", "tuner gain in dB, \"auto\", or \"list\"")
		freqFlag   = flag.Uint("f", 0, "initial control frequency in Hz (required unless -r)")
		deviceFlag = flag.String("d", "0", "tuner device index, or \"list\"")
		bindAddr   = flag.String("b", "0.0.0.0:8025", "HTTP bind address")
		replayPath = flag.String("r", "", "replay baseband file; bypasses tuner & HTTP")
		teePath    = flag.String("w", "", "tee baseband to file (f32 LE, 48kHz, mono)")
		configPath = flag.String("c", "", "path to YAML config file")
		mqttAddr   = flag.String("m", "", "enable MQTT event republishing to this broker addr:port")
	)
	flag.Parse()

	if *deviceFlag == "list" {
		fmt.Println("device enumeration is handled by the tuner front end; see -d <index> or the netsdr data/control addresses in the config file")
		return 0
	}
	if *gainFlag == "list" {
		fmt.Println("gain enumeration is handled by the tuner front end; pass -g <dB> or -g auto")
		return 0
	}

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Printf("p25rx: %v", err)
			return 1
		}
		cfg = loaded
	}

	gain, err := parseGain(*gainFlag)
	if err != nil {
		log.Printf("p25rx: bad gain %q: %v", *gainFlag, err)
		return 1
	}
	cfg.Tuner.Gain = gain
	cfg.Tuner.PPM = *ppm

	if *replayPath == "" && *freqFlag == 0 && cfg.Tuner.ControlFreq == 0 {
		log.Print("p25rx: -f is required unless -r is given")
		return 1
	}
	ctlFreq := p25const.Hz(*freqFlag)
	if ctlFreq == 0 {
		ctlFreq = cfg.Tuner.ControlFreq
	}

	if *replayPath == "" && *audioPath == "" && cfg.Audio.Path == "" {
		log.Print("p25rx: -a is required unless -r is given")
		return 1
	}

	deviceIndex, err := strconv.Atoi(*deviceFlag)
	if err == nil {
		cfg.Tuner.DeviceIndex = deviceIndex
	}

	if *mqttAddr != "" {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = *mqttAddr
	}
	if *bindAddr != "" {
		cfg.Hub.Addr = *bindAddr
	}

	lut := demod.BuildLUT()

	bytes := pool.NewBytePool(p25const.PoolCapacity)
	floats := pool.NewFloatPool(p25const.PoolCapacity)
	reg := prometheus.NewRegistry()
	pool.NewMetrics(reg, bytes, floats)

	rxCh := make(chan rxmsg.Event, 4)
	eventsCh := make(chan hub.Event, 64)
	audioCh := make(chan audio.Event, 16)
	controlCh := make(chan tuner.Message, 4)

	hubServer := hub.NewServer(rxCh, cfg.Hub.MaxSubscribers)
	wireHubExpansions(hubServer, cfg, reg)
	go hubServer.Run(eventsCh)

	sinkPath := cfg.Audio.Path
	if *audioPath != "" {
		sinkPath = *audioPath
	}
	audioTask, err := buildAudioTask(cfg, sinkPath, hubServer)
	if err != nil {
		log.Printf("p25rx: audio sink: %v", err)
		return 1
	}
	go audioTask.Run(audioCh)

	stats := receiver.NewStats(reg)
	selector := cfg.NewSelector()
	pol := cfg.NewPolicy()
	recv := receiver.NewTask(p25stub.New(), pol, selector, ctlFreq, cfg.Hopping, stats, controlCh, eventsCh, audioCh)

	if *replayPath != "" {
		return runReplay(*replayPath, floats, rxCh, recv)
	}

	return runLive(cfg, ctlFreq, *ppm, gain, *teePath, lut, bytes, floats, rxCh, eventsCh, controlCh, recv, hubServer)
}

// parseGain turns the -g flag's textual value into the numeric gain
// runLive passes to tuner.Controller.SetTunerGain, or tuner.AutoGain,
// which runLive turns into EnableAGC(true).
func parseGain(s string) (float64, error) {
	if s == "auto" || s == "" {
		return tuner.AutoGain, nil
	}
	return strconv.ParseFloat(s, 64)
}

// buildAudioTask opens the configured sink (file, FIFO, or stdout,
// §4.8) and wires the IMBE vocoder stand-in and, if the hub's audio
// monitor is enabled, the Opus monitor tap (SPEC_FULL.md §4.8
// expansion).
func buildAudioTask(cfg *config.Config, path string, hubServer *hub.Server) (*audio.Task, error) {
	sink, err := openSink(cfg.Audio.Sink, path)
	if err != nil {
		return nil, err
	}

	task := audio.NewTask(imbestub.New(), sink)

	if cfg.Audio.Monitor.Enabled {
		mon, err := audio.NewOpusMonitor(hubServer.AudioBroadcaster())
		if err != nil {
			log.Printf("p25rx: audio monitor disabled: %v", err)
		} else {
			task.SetMonitor(mon)
		}
	}
	return task, nil
}

func openSink(kind, path string) (audio.Sink, error) {
	switch kind {
	case "stdout", "":
		if path == "" || path == "-" {
			return audio.NewSink(os.Stdout), nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return audio.NewSink(f), nil
	case "fifo":
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("open fifo: %w", err)
		}
		return audio.NewSink(f), nil
	case "file":
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return audio.NewSink(f), nil
	default:
		return nil, fmt.Errorf("unknown audio sink kind %q", kind)
	}
}

// wireHubExpansions enables the SPEC_FULL.md §4.9 additive surface per
// config: metrics, gzip, GeoIP, MQTT, the version endpoint, MCP, the
// audio monitor, and extended health reporting. Every one of these is
// optional and failing to enable one is logged, never fatal, matching
// the teacher's "enabled" guard pattern.
func wireHubExpansions(s *hub.Server, cfg *config.Config, reg *prometheus.Registry) {
	if cfg.Prometheus.Enabled {
		s.EnableMetrics(reg)
	}
	if cfg.Hub.GzipResponses {
		s.EnableGzip()
	}
	if cfg.GeoIP.Enabled {
		if err := s.EnableGeoIP(cfg.GeoIP.Database); err != nil {
			log.Printf("p25rx: geoip disabled: %v", err)
		}
	}
	if cfg.MQTT.Enabled {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "p25rx"
		}
		topic := cfg.MQTT.Topic
		if topic == "" {
			topic = "p25rx"
		}
		if err := s.NewMQTTPublisher(cfg.MQTT.Broker, clientID, topic); err != nil {
			log.Printf("p25rx: mqtt disabled: %v", err)
		}
	}
	if err := s.EnableVersionEndpoint(buildVersion); err != nil {
		log.Printf("p25rx: version endpoint disabled: %v", err)
	}
	if cfg.MCP.Enabled {
		s.EnableMCP()
	}
	if cfg.Audio.Monitor.Enabled {
		s.EnableAudioMonitor()
	}
	if err := s.EnableHealthDetails(); err != nil {
		log.Printf("p25rx: extended health reporting disabled: %v", err)
	}
}

// buildVersion is this module's reported version for /api/version
// (SPEC_FULL.md §4.9 expansion).
const buildVersion = "1.0.0"

// runReplay feeds a pre-recorded baseband file directly to the
// receiver task, bypassing the tuner, demod, control task, and HTTP
// server entirely (§6: "-r <FILE> replay baseband file; bypasses
// tuner & HTTP").
func runReplay(path string, floats *pool.FloatPool, rxCh chan rxmsg.Event, recv *receiver.Task) int {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("p25rx: open replay file: %v", err)
		return 1
	}
	defer f.Close()

	go recv.Run(rxCh)

	if err := feedReplayFile(f, floats, rxCh); err != nil && err != io.EOF {
		log.Printf("p25rx: replay: %v", err)
		return 1
	}
	close(rxCh)
	return 0
}

// runLive wires the tuner reader/control tasks, the demod pipeline,
// and the HTTP/SSE server around the receiver and audio tasks already
// started by the caller, then serves until the process is signaled.
func runLive(cfg *config.Config, ctlFreq p25const.Hz, ppm int, gain float64, teePath string, lut [65536]complex64, bytes *pool.BytePool, floats *pool.FloatPool, rxCh chan rxmsg.Event, eventsCh chan hub.Event, controlCh chan tuner.Message, recv *receiver.Task, hubServer *hub.Server) int {
	dataAddr, err := net.ResolveUDPAddr("udp4", cfg.Tuner.DataAddr)
	if err != nil {
		log.Printf("p25rx: resolve tuner data addr %q: %v", cfg.Tuner.DataAddr, err)
		return 1
	}
	var iface *net.Interface
	if cfg.Tuner.Interface != "" {
		iface, err = net.InterfaceByName(cfg.Tuner.Interface)
		if err != nil {
			log.Printf("p25rx: resolve interface %q: %v", cfg.Tuner.Interface, err)
			return 1
		}
	}
	controlAddr, err := net.ResolveUDPAddr("udp4", cfg.Tuner.ControlAddr)
	if err != nil {
		log.Printf("p25rx: resolve tuner control addr %q: %v", cfg.Tuner.ControlAddr, err)
		return 1
	}

	reader := netsdr.NewReader(dataAddr, iface)
	controller, err := netsdr.NewController(controlAddr)
	if err != nil {
		log.Printf("p25rx: open tuner controller: %v", err)
		return 1
	}

	if err := controller.SetSampleRate(p25const.InputSampleRate); err != nil {
		log.Printf("p25rx: set sample rate: %v", err)
		return 1
	}
	if err := controller.SetPPM(ppm); err != nil {
		log.Printf("p25rx: set ppm: %v", err)
		return 1
	}
	if gain == tuner.AutoGain {
		err = controller.EnableAGC(true)
	} else {
		err = controller.SetTunerGain(gain)
	}
	if err != nil {
		log.Printf("p25rx: set gain: %v", err)
		return 1
	}
	if err := controller.SetCenterFreq(ctlFreq); err != nil {
		log.Printf("p25rx: set center freq: %v", err)
		return 1
	}

	fatal := func(err error) { log.Fatalf("p25rx: control task: %v", err) }
	go tuner.Task(controlCh, controller, fatal)

	var tee io.WriteCloser
	if teePath != "" {
		f, err := os.Create(teePath)
		if err != nil {
			log.Printf("p25rx: open tee file: %v", err)
			return 1
		}
		tee = f
	}

	demodOutCh := make(chan rxmsg.Event, 4)
	pipeline := demod.NewPipeline(&lut, false)

	if cfg.Spectrum.Enabled {
		n := cfg.Spectrum.FFTSize
		if n == 0 {
			n = 1024
		}
		pipeline.SetSpectrumTap(demod.NewSpectrumTap(n))
	}

	byteCh := make(chan *pool.ByteHandle, 4)
	if err := reader.Start(func(b []byte) { feedReader(bytes, byteCh, b) }); err != nil {
		log.Printf("p25rx: start tuner reader: %v", err)
		return 1
	}

	go pipeline.Task(byteCh, demodOutCh, eventsCh, floats)
	go teeForward(demodOutCh, rxCh, tee)
	go recv.Run(rxCh)

	mux := hubServer.Mux()
	server := &http.Server{Addr: cfg.Hub.Addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Print("p25rx: shutting down")
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("p25rx: http server: %v", err)
		return 1
	}
	return 0
}

// feedReader implements the reader task's fallible async callback
// (§4.2, §9): checks out a buffer, copies the delivered bytes in, and
// forwards it. Checkout failure is fatal — it indicates the demod task
// has stalled and the pool is exhausted (§7).
func feedReader(bytes *pool.BytePool, out chan<- *pool.ByteHandle, b []byte) {
	h := bytes.Checkout()
	if h == nil {
		log.Fatal("p25rx: byte pool exhausted, pipeline stalled")
	}
	n := copy(h.Buf, b)
	h.Buf = h.Buf[:n]
	out <- h
}

// teeForward forwards demod output to the receiver task, optionally
// writing a copy of each baseband block's raw float32 LE bytes to tee
// first (§6's -w flag).
func teeForward(in <-chan rxmsg.Event, out chan<- rxmsg.Event, tee io.Writer) {
	for ev := range in {
		if tee != nil && ev.Kind == rxmsg.Baseband {
			if err := writeBasebandF32(tee, ev.Baseband.Buf); err != nil {
				log.Fatalf("p25rx: tee write: %v", err)
			}
		}
		out <- ev
	}
}

func feedReplayFile(f *os.File, floats *pool.FloatPool, out chan<- rxmsg.Event) error {
	raw := make([]byte, p25const.BufSamples*4)
	for {
		n, err := io.ReadFull(f, raw)
		if n > 0 {
			h := floats.Checkout()
			if h == nil {
				log.Fatal("p25rx: float pool exhausted, pipeline stalled")
			}
			count := n / 4
			if err := readBasebandF32(raw[:n], h.Buf[:count]); err != nil {
				h.Release()
				return err
			}
			h.Buf = h.Buf[:count]
			out <- rxmsg.Event{Kind: rxmsg.Baseband, Baseband: h}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// writeBasebandF32 appends samples as little-endian IEEE-754 float32
// bytes (§6's baseband dump format).
func writeBasebandF32(w io.Writer, samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	_, err := w.Write(buf)
	return err
}

// readBasebandF32 decodes little-endian IEEE-754 float32 samples from
// raw into dst, which must have capacity len(raw)/4.
func readBasebandF32(raw []byte, dst []float32) error {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return nil
}
