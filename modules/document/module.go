package document

import (
	"context"
	"encoding/json"

	"github.com/labstack/echo/v4"

	"meetbook/core/bus"
	"meetbook/core/cache"
	"meetbook/core/config"
	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/core/storage"
	"meetbook/modules/document/controller"
	"meetbook/modules/document/dto"
	"meetbook/modules/document/repository"
	"meetbook/modules/document/router"
	"meetbook/modules/document/service"
	"meetbook/modules/document/signwell"
)

// Module exposes the document service so the booking module can initiate
// NDA collection.
type Module struct {
	Documents *service.DocumentService
}

func Init(
	ctx context.Context,
	e *echo.Echo,
	db database.IDatabase,
	eventBus *bus.Bus,
	archive storage.DocumentArchive,
	replay cache.Cache,
	cfg *config.Config,
) *Module {
	docRepo := repository.NewDocumentRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	provider := signwell.New(cfg.SignWell)

	documents := service.NewDocumentService(docRepo, provider, archive, eventBus)
	reactor := service.NewWebhookReactor(cfg.Webhook.SharedSecret, cfg.IsDevelopment(), webhookRepo, documents, replay)

	ctrl := controller.NewWebhookController(reactor)
	router.NewDocumentRouter(ctrl).Setup(e)

	startEnvelopeConsumer(ctx, eventBus, documents)

	return &Module{Documents: documents}
}

// startEnvelopeConsumer retries envelope creation for documents whose
// provider call failed at hold time. Durable, so pending documents survive
// restarts.
func startEnvelopeConsumer(ctx context.Context, eventBus *bus.Bus, documents service.DocumentServiceInterface) {
	consumer := bus.NewConsumer(eventBus, bus.ConsumerConfig{
		Stream:   bus.StreamDocuments,
		Group:    "documents:envelope-sender",
		Subjects: []string{bus.SubjectNdaCreated},
	}, func(ctx context.Context, env bus.Envelope) error {
		var event dto.NdaCreatedEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			logger.Error("Document:EnvelopeConsumer:BadPayload", "event_id", env.EventID, "error", err)
			return nil
		}
		return documents.EnsureEnvelope(ctx, event.HoldID)
	})
	if err := consumer.Start(ctx); err != nil {
		logger.Error("Document:EnvelopeConsumer:Start:Error", "error", err)
	}
}
