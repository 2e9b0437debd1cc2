package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainWebhook "github.com/AzielCF/az-crm/domains/webhook"
	"github.com/AzielCF/az-crm/infrastructure/meta"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestChatRepo(t *testing.T) *repository.ChatGormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.NewChatGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

// fakeIntegrationUsecase resolves a fixed phone-number-id to a fixed tenant.
type fakeIntegrationUsecase struct {
	byPhoneNumberID map[string]domainIntegration.Integration
	byOrganization  map[string]domainIntegration.Integration
	connectCalls    []domainIntegration.ConnectRequest
	errorCalls      []string
}

func newFakeIntegrations() *fakeIntegrationUsecase {
	return &fakeIntegrationUsecase{
		byPhoneNumberID: make(map[string]domainIntegration.Integration),
		byOrganization:  make(map[string]domainIntegration.Integration),
	}
}

func (f *fakeIntegrationUsecase) add(in domainIntegration.Integration) {
	if in.PhoneNumberID != "" {
		f.byPhoneNumberID[in.PhoneNumberID] = in
	}
	f.byOrganization[in.OrganizationID] = in
}

func (f *fakeIntegrationUsecase) ResolveByPhoneNumberID(_ context.Context, phoneNumberID string) (*domainIntegration.Integration, error) {
	in, ok := f.byPhoneNumberID[phoneNumberID]
	if !ok || in.Status != domainIntegration.StatusConnected {
		return nil, nil
	}
	return &in, nil
}

func (f *fakeIntegrationUsecase) GetByOrganization(_ context.Context, organizationID string) (domainIntegration.Integration, error) {
	in, ok := f.byOrganization[organizationID]
	if !ok {
		return domainIntegration.Integration{}, pkgError.NotFoundError("integration not found for organization")
	}
	return in, nil
}

func (f *fakeIntegrationUsecase) Connect(_ context.Context, request domainIntegration.ConnectRequest) (domainIntegration.Integration, error) {
	f.connectCalls = append(f.connectCalls, request)
	in := domainIntegration.Integration{
		OrganizationID: request.OrganizationID,
		PhoneNumber:    request.PhoneNumber,
		PhoneNumberID:  request.PhoneNumberID,
		AccessToken:    request.AccessToken,
		Status:         domainIntegration.StatusConnected,
	}
	f.add(in)
	return in, nil
}

func (f *fakeIntegrationUsecase) Disconnect(_ context.Context, organizationID string) error {
	delete(f.byOrganization, organizationID)
	return nil
}

func (f *fakeIntegrationUsecase) MarkError(_ context.Context, organizationID, message string) error {
	f.errorCalls = append(f.errorCalls, message)
	if in, ok := f.byOrganization[organizationID]; ok {
		in.Status = domainIntegration.StatusError
		in.ErrorMessage = message
		f.byOrganization[organizationID] = in
	}
	return nil
}

// capturePublisher records every emitted event key.
type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, key)
	return nil
}

func (p *capturePublisher) Healthy() bool { return true }

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// captureNotifier signals through a channel so tests can wait for the
// asynchronous hand-off.
type captureNotifier struct {
	called chan domainWebhook.InboundMessage
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{called: make(chan domainWebhook.InboundMessage, 4)}
}

func (n *captureNotifier) NotifyInbound(_ context.Context, _, _ string, message domainWebhook.InboundMessage) {
	n.called <- message
}

// fakeMetaClient answers sends with a canned wamid, or fails.
type fakeMetaClient struct {
	result meta.SendResult
	err    error

	lastTo   string
	lastBody string
	calls    int
}

func (c *fakeMetaClient) answer(_ context.Context, to, body string) (meta.SendResult, error) {
	c.calls++
	c.lastTo = to
	c.lastBody = body
	if c.err != nil {
		return meta.SendResult{}, c.err
	}
	return c.result, nil
}

func (c *fakeMetaClient) SendText(ctx context.Context, _ meta.Credentials, to, body string) (meta.SendResult, error) {
	return c.answer(ctx, to, body)
}

func (c *fakeMetaClient) SendImage(ctx context.Context, _ meta.Credentials, to, imageURL, caption string) (meta.SendResult, error) {
	return c.answer(ctx, to, imageURL)
}

func (c *fakeMetaClient) SendDocument(ctx context.Context, _ meta.Credentials, to, documentURL, filename string) (meta.SendResult, error) {
	return c.answer(ctx, to, documentURL)
}
