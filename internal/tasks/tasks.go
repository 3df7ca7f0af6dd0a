package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/email"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/storage"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery      = "email:deliver"
	TypeImageProcess       = "image:process"
	TypeAgreementReconcile = "agreement:reconcile"
)

// Queue names.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
)

// Enqueuer is the part of *asynq.Client used to schedule work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
}

// NewClient creates an asynq client on the application's Redis.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// EmailTaskPayload is a templated email to one recipient.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// ImageTaskPayload points at an uploaded listing image.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// NewEmailTask builds an email:deliver task.
func NewEmailTask(payload EmailTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewImageTask builds an image:process task.
func NewImageTask(payload ImageTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, data, asynq.Queue(QueueImages), asynq.MaxRetry(3)), nil
}

// NewReconcileTask builds an agreement:reconcile task. Only one may be queued at a time.
func NewReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeAgreementReconcile, nil, asynq.Queue(QueueCritical), asynq.Unique(5*time.Minute))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	storageService       storage.IS3Storage
	listingService       services.IListingService
	agreementService     services.IAgreementService
	emailTemplateService services.IEmailTemplateService
	logger               *zap.Logger
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	listingService services.IListingService,
	agreementService services.IAgreementService,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		storageService:       storageService,
		listingService:       listingService,
		agreementService:     agreementService,
		emailTemplateService: emailTemplateService,
		logger:               utils.GetLogger(),
	}
}

// NewServeMux registers the handlers for the requested worker roles.
func NewServeMux(processor *TaskProcessor, isImageWorker, isBgWorker bool) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(TypeAgreementReconcile, processor.HandleAgreementReconcileTask)
	}
	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	}
	return mux
}

// SetupServer configures an Asynq server and its mux. It returns nil, nil when
// neither worker role is requested.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		processor.logger.Info("Running in API mode, no task server started")
		return nil, nil
	}
	queues := map[string]int{}
	if isBgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
	}
	if isImageWorker {
		queues[QueueImages] = 5
	}
	srv := asynq.NewServer(redisOpt(rdb), asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			processor.logger.Error("Task failed",
				zap.String("type", task.Type()), zap.ByteString("payload", task.Payload()), zap.Error(err))
		}),
	})
	processor.logger.Info("Task server configured",
		zap.Bool("backgroundHandlers", isBgWorker), zap.Bool("imageHandlers", isImageWorker))
	return srv, NewServeMux(processor, isImageWorker, isBgWorker)
}

// NewScheduler registers the periodic reconciliation task on cronspec.
func NewScheduler(rdb *redis.Client, cronspec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(cronspec, NewReconcileTask()); err != nil {
		return nil, fmt.Errorf("failed to schedule %s on %q: %w", TypeAgreementReconcile, cronspec, err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

// renderTemplate replaces {{.key}} placeholders with payload values.
func renderTemplate(text string, data map[string]interface{}) string {
	for key, val := range data {
		text = strings.ReplaceAll(text, fmt.Sprintf("{{.%s}}", key), fmt.Sprintf("%v", val))
	}
	return text
}

// HandleEmailDeliveryTask renders a template and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = services.DefaultTemplateLocale
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		p.logger.Error("Email template lookup failed",
			zap.String("template", payload.TemplateID), zap.String("locale", locale), zap.Error(err))
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subjectRendered := renderTemplate(tmpl.Subject, payload.Data)
	bodyRendered := renderTemplate(tmpl.Body, payload.Data)

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subjectRendered))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString(fmt.Sprintf("%s: %s\r\n", email.TemplateHeader, payload.TemplateID))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(bodyRendered)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, subjectRendered, []byte(sb.String())); err != nil {
		p.logger.Warn("Email sending failed, will retry", zap.String("to", payload.To), zap.Error(err))
		return err
	}

	p.logger.Info("Email sent", zap.String("to", payload.To), zap.String("template", payload.TemplateID))
	return nil
}

// HandleImageProcessTask shrinks an uploaded listing image to the configured
// bounds and appends it to the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.logger.With(zap.String("key", payload.S3Key), zap.String("listingId", payload.ListingID))

	imgData, contentType, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			utils.ImagesProcessedTotal.WithLabelValues("missing").Inc()
			log.Warn("Uploaded image not found, upload probably failed")
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		utils.ImagesProcessedTotal.WithLabelValues("too_large").Inc()
		log.Warn("Image exceeds max size", zap.Int("bytes", len(imgData)))
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		utils.ImagesProcessedTotal.WithLabelValues("invalid").Inc()
		log.Warn("Image could not be decoded", zap.Error(err))
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		if int64(buf.Len()) > maxSizeBytes {
			utils.ImagesProcessedTotal.WithLabelValues("too_large").Inc()
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
		if err := p.storageService.PutObject(ctx, payload.S3Key, buf.Bytes(), "image/jpeg"); err != nil {
			return err
		}
		log.Info("Resized listing image",
			zap.String("format", format),
			zap.Int("fromWidth", img.Bounds().Dx()), zap.Int("fromHeight", img.Bounds().Dy()),
			zap.Int("toWidth", resized.Bounds().Dx()), zap.Int("toHeight", resized.Bounds().Dy()))
	} else {
		log.Debug("Image within bounds, kept as uploaded", zap.String("contentType", contentType))
	}

	if err := p.listingService.AddImageToListing(ctx, payload.ListingID, p.storageService.PublicURL(payload.S3Key)); err != nil {
		if errors.Is(err, services.ErrListingNotFound) || errors.Is(err, services.ErrInvalidID) {
			utils.ImagesProcessedTotal.WithLabelValues("orphaned").Inc()
			return fmt.Errorf("listing %s: %v: %w", payload.ListingID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}

	utils.ImagesProcessedTotal.WithLabelValues("ok").Inc()
	return nil
}

// HandleAgreementReconcileTask repairs inquiries left unmarked by an agreement.
func (p *TaskProcessor) HandleAgreementReconcileTask(ctx context.Context, t *asynq.Task) error {
	repaired, err := p.agreementService.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation stopped after %d repairs: %w", repaired, err)
	}
	if repaired > 0 {
		p.logger.Info("Reconciliation repaired inquiries", zap.Int("repaired", repaired))
	}
	return nil
}
