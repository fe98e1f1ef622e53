// dpptester 是联调用的命令行客户端：对运行中的后端执行产品对话、故事生成和实时语音测试。
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
	"github.com/zhouzirui/dpp-browser/backend/internal/logging"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/product"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/chat"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/openai"
	personasvc "github.com/zhouzirui/dpp-browser/backend/internal/service/persona"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/voice"
)

type options struct {
	server      string
	productPath string
	lang        persona.Language
	text        string
	audioIn     string
	audioOut    string
	wait        time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logCfg := cfg.Log
	logCfg.Development = true
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	mode := flag.String("mode", "", "测试模式: chat、story 或 voice")
	server := flag.String("server", "http://localhost:8080", "后端地址")
	productPath := flag.String("product", "", "产品 JSON 文件路径")
	lang := flag.String("lang", "IT", "语言: IT、EN、ES、FR")
	text := flag.String("text", "", "chat: 欢迎词之后追加的用户消息；voice: 连接后发送的文本消息")
	audioIn := flag.String("in", "", "voice: 作为麦克风输入的 WAV 文件 (24kHz/16bit/单声道)")
	audioOut := flag.String("out", "", "story: MP3 输出路径；voice: WAV 输出路径")
	wait := flag.Duration("wait", 20*time.Second, "voice: 等待语音回复的最长时间")
	timeout := flag.Duration("timeout", 2*time.Minute, "整体超时时间")
	flag.Parse()

	opts := options{
		server:      strings.TrimRight(*server, "/"),
		productPath: *productPath,
		lang:        persona.ParseLanguage(*lang),
		text:        *text,
		audioIn:     *audioIn,
		audioOut:    *audioOut,
		wait:        *wait,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "chat":
		err = runChat(ctx, opts, logger)
	case "story":
		err = runStory(ctx, opts, logger)
	case "voice":
		err = runVoice(ctx, cfg, opts, logger)
	default:
		flag.Usage()
		err = fmt.Errorf("unknown mode %q, use -mode=chat|story|voice", *mode)
	}
	if err != nil {
		logger.Fatal("test failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func loadProduct(path string) (product.Product, json.RawMessage, error) {
	if path == "" {
		return product.Product{}, nil, fmt.Errorf("-product is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return product.Product{}, nil, fmt.Errorf("read product: %w", err)
	}
	p, err := product.Parse(raw)
	if err != nil {
		return product.Product{}, nil, err
	}
	return p, raw, nil
}

// postJSON 向后端发送 JSON 请求，返回成功响应的正文。
func postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, openai.ReadErrorMessage(resp.Body))
	}
	return io.ReadAll(resp.Body)
}

func fetchPersona(ctx context.Context, opts options, raw json.RawMessage) (persona.Persona, error) {
	var out persona.Persona
	data, err := postJSON(ctx, opts.server+"/api/persona", map[string]any{
		"product":  raw,
		"language": opts.lang,
	})
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func runChat(ctx context.Context, opts options, logger *zap.Logger) error {
	p, raw, err := loadProduct(opts.productPath)
	if err != nil {
		return err
	}

	client := chat.NewClient(opts.server+"/api", chat.WithLogger(logger))
	if !client.TestConnection(ctx) {
		return fmt.Errorf("backend %s is not reachable", opts.server)
	}

	pp, err := fetchPersona(ctx, opts, raw)
	if err != nil {
		return err
	}
	logger.Info("persona ready", zap.String("product", pp.ProductName), zap.String("traits", pp.Traits))

	conv := chat.NewConversation(client, pp.SystemPrompt)
	printChunk := func(s string) { fmt.Print(s) }
	send := func(ctx context.Context, text string) (string, error) {
		return conv.Send(ctx, text, printChunk)
	}

	welcome := personasvc.NewService(logger).GenerateWelcome(ctx, send, p, opts.lang)
	fmt.Println()
	logger.Info("welcome received", zap.Int("chars", len(welcome)))

	if strings.TrimSpace(opts.text) != "" {
		if _, err := conv.Send(ctx, opts.text, printChunk); err != nil {
			return err
		}
		fmt.Println()
	}
	logger.Info("chat finished", zap.Int("messages", conv.Metadata().MessageCount))
	return nil
}

func runStory(ctx context.Context, opts options, logger *zap.Logger) error {
	_, raw, err := loadProduct(opts.productPath)
	if err != nil {
		return err
	}

	data, err := postJSON(ctx, opts.server+"/api/story", map[string]any{
		"product":  raw,
		"language": opts.lang,
	})
	if err != nil {
		return err
	}
	var story struct {
		Story string `json:"story"`
	}
	if err := json.Unmarshal(data, &story); err != nil {
		return err
	}
	fmt.Println(story.Story)

	if opts.audioOut == "" {
		return nil
	}
	audioData, err := postJSON(ctx, opts.server+"/api/story/audio", map[string]any{
		"text":     story.Story,
		"language": opts.lang,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.audioOut, audioData, 0o644); err != nil {
		return err
	}
	logger.Info("story audio written", zap.String("path", opts.audioOut), zap.Int("bytes", len(audioData)))
	return nil
}

func runVoice(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	vopts := voice.OptionsFromConfig(cfg.Realtime)
	vopts.Tokens = voice.NewHTTPTokenSource(opts.server + "/api/realtime/token")
	vopts.Logger = logger

	if opts.productPath != "" {
		_, raw, err := loadProduct(opts.productPath)
		if err != nil {
			return err
		}
		pp, err := fetchPersona(ctx, opts, raw)
		if err != nil {
			return err
		}
		vopts.Instructions = pp.SystemPrompt
	}

	var mic *wavMicrophone
	if opts.audioIn != "" {
		mic = newWAVMicrophone(opts.audioIn, true)
		vopts.Microphone = mic
	}
	var speaker *wavSpeaker
	if opts.audioOut != "" {
		speaker = newWAVSpeaker(opts.audioOut)
		vopts.Speaker = speaker
	}

	transcript := voice.NewTranscript()
	replied := make(chan struct{}, 1)
	vopts.Callbacks = voice.Callbacks{
		OnTranscript: transcript.Apply,
		OnConnectionChange: func(st voice.ConnectionState) {
			logger.Info("connection state", zap.String("state", string(st)))
		},
		OnError: func(msg string) {
			logger.Warn("session error", zap.String("message", msg))
		},
		OnAudioResponse: func(ev voice.AudioResponse) {
			if ev.Complete {
				select {
				case replied <- struct{}{}:
				default:
				}
			}
		},
	}

	session := voice.NewSession(vopts)
	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer session.Disconnect()

	switch {
	case mic != nil:
		if !session.CheckMicrophoneAvailable(ctx) {
			return fmt.Errorf("input file %s not found", opts.audioIn)
		}
		if err := session.StartRecording(ctx); err != nil {
			return err
		}
		select {
		case <-mic.Finished():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := session.StopRecording(); err != nil {
			return err
		}
	case strings.TrimSpace(opts.text) != "":
		if err := session.SendText(opts.text); err != nil {
			return err
		}
	default:
		return fmt.Errorf("voice mode needs -in or -text")
	}

	select {
	case <-replied:
	case <-time.After(opts.wait):
		logger.Warn("no complete reply before timeout", zap.Duration("wait", opts.wait))
	case <-ctx.Done():
	}
	session.Disconnect()

	for _, line := range transcript.Lines() {
		fmt.Printf("[%s] %s\n", line.Role, line.Text)
	}
	if speaker != nil {
		logger.Info("reply audio written", zap.String("path", opts.audioOut), zap.Int("samples", speaker.Samples()))
	}
	return nil
}
