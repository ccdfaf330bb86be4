package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"salon-agent/internal/agent"
	"salon-agent/internal/assist"
	"salon-agent/internal/business"
	"salon-agent/internal/config"
	"salon-agent/internal/escalate"
	"salon-agent/internal/store"
	"salon-agent/internal/voice"
)

func main() {
	cfgPath := flag.String("config", "/etc/salonagentd.yaml", "config file path")
	room := flag.String("room", "", "voice platform room to serve")
	sessionID := flag.String("session", "", "voice session id")
	phone := flag.String("phone", "", "customer phone number")
	flag.Parse()

	if *room == "" || *sessionID == "" {
		log.Fatal("both -room and -session are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment variables")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewFirestore(ctx, store.FirestoreConfig{
		ProjectID:       cfg.Firestore.ProjectID,
		CredentialsFile: cfg.Firestore.CredentialsFile,
	})
	if err != nil {
		log.Fatalf("firestore connect: %v", err)
	}
	defer st.Close()

	info, err := business.LoadInfo(cfg.BusinessInfoPath)
	if err != nil {
		log.Fatalf("load business info: %v", err)
	}

	// A missing phrase table disables escalation matching but must not
	// keep the agent from answering calls.
	classifier := escalate.Load(cfg.Classifier.PhrasesCSV)

	responder := &agent.Responder{
		Store:             st,
		Classifier:        classifier,
		Info:              info,
		CloseOnEscalation: cfg.Agent.CloseOnEscalation,
	}

	if cfg.Agent.UseAssistant {
		assistant, err := assist.New(assist.Config{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: cfg.Agent.AssistantBaseURL,
			Model:   cfg.Agent.AssistantModel,
		}, info)
		if err != nil {
			log.Printf("assistant disabled: %v", err)
		} else {
			responder.Assistant = assistant
		}
	}

	platform, err := voice.NewGateway(
		voice.WithAPIURL(cfg.Voice.APIURL),
		voice.WithGatewayURL(cfg.Voice.GatewayWSURL),
		voice.WithAPIKey(cfg.Voice.APIKey),
	)
	if err != nil {
		log.Fatalf("voice platform: %v", err)
	}
	defer platform.Close()

	sess := &agent.Session{
		Platform:     platform,
		Store:        st,
		Responder:    responder,
		Greeting:     cfg.Agent.Greeting,
		PollInterval: cfg.Agent.PollInterval(),
	}

	if err := sess.Run(ctx, *room, *sessionID, *phone); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("session: %v", err)
	}
}
