package content

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studio/admin/internal/docstore"
	"studio/admin/internal/ordering"
)

const inquiriesCollection = "inquiries"

var inquiryFields = []Field{
	{Name: "name", Type: FieldText, Required: true, Max: 120},
	{Name: "email", Type: FieldEmail, Required: true},
	{Name: "phone", Type: FieldText, Max: 40},
	{Name: "subject", Type: FieldText, Max: 200},
	{Name: "message", Type: FieldLongText, Required: true, Max: 5000},
}

type Inquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Handled   bool      `json:"handled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier tells staff about a new inquiry.
type Notifier interface {
	IsConfigured() bool
	SendInquiryNotification(inquiry Inquiry) error
}

type InquiryService struct {
	store    docstore.Store
	notifier Notifier
	logger   *zap.Logger
}

func NewInquiryService(store docstore.Store, notifier Notifier, logger *zap.Logger) *InquiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InquiryService{store: store, notifier: notifier, logger: logger}
}

// Submit stores a public contact request and notifies staff in the
// background when mail is configured.
func (s *InquiryService) Submit(ctx context.Context, input map[string]any) (Inquiry, error) {
	fields, err := normalize("inquiries", inquiryFields, input, false)
	if err != nil {
		return Inquiry{}, err
	}
	fields["handled"] = false

	id, err := s.store.Create(ctx, inquiriesCollection, fields, nil)
	if err != nil {
		return Inquiry{}, fmt.Errorf("store inquiry: %w", err)
	}
	record, err := s.store.Get(ctx, inquiriesCollection, id)
	if err != nil {
		return Inquiry{}, fmt.Errorf("reload inquiry: %w", err)
	}
	inquiry := inquiryFromRecord(record)

	if s.notifier != nil && s.notifier.IsConfigured() {
		go func() {
			if err := s.notifier.SendInquiryNotification(inquiry); err != nil {
				s.logger.Warn("inquiry notification failed", zap.String("inquiry_id", inquiry.ID), zap.Error(err))
			}
		}()
	}
	return inquiry, nil
}

// List returns every inquiry, newest first.
func (s *InquiryService) List(ctx context.Context) ([]Inquiry, error) {
	records, err := s.store.List(ctx, docstore.Scope{Collection: inquiriesCollection})
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	sorted := ordering.ResolveSortOrder(records)
	out := make([]Inquiry, 0, len(sorted))
	for _, record := range sorted {
		out = append(out, inquiryFromRecord(record))
	}
	return out, nil
}

func (s *InquiryService) MarkHandled(ctx context.Context, id string, handled bool) (Inquiry, error) {
	if err := s.store.Update(ctx, inquiriesCollection, id, map[string]any{"handled": handled}); err != nil {
		return Inquiry{}, fmt.Errorf("mark inquiry %s: %w", id, err)
	}
	record, err := s.store.Get(ctx, inquiriesCollection, id)
	if err != nil {
		return Inquiry{}, fmt.Errorf("reload inquiry %s: %w", id, err)
	}
	return inquiryFromRecord(record), nil
}

func (s *InquiryService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, inquiriesCollection, id); err != nil {
		return fmt.Errorf("delete inquiry %s: %w", id, err)
	}
	return nil
}

func inquiryFromRecord(record docstore.Record) Inquiry {
	return Inquiry{
		ID:        record.ID,
		Name:      record.String("name"),
		Email:     record.String("email"),
		Phone:     record.String("phone"),
		Subject:   record.String("subject"),
		Message:   record.String("message"),
		Handled:   record.Bool("handled"),
		CreatedAt: record.CreatedAt,
	}
}
