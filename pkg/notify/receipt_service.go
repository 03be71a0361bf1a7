package notify

import (
	"context"
	"fmt"
	"time"

	"marketplace-delivery/internal/models"
	"marketplace-delivery/pkg/utils"
)

// ReceiptService renders and sends settlement receipts over the email sender.
type ReceiptService struct {
	sender    ServiceInterface
	templates *TemplateManager
}

// NewReceiptService creates a receipt service over the given sender.
func NewReceiptService(sender ServiceInterface, templates *TemplateManager) *ReceiptService {
	return &ReceiptService{sender: sender, templates: templates}
}

// SendSettlementReceipt emails the partner a receipt for a recorded
// settlement. Amounts arrive in minor currency units.
func (s *ReceiptService) SendSettlementReceipt(ctx context.Context, toEmail string, ev *models.CODSettlementEvent, outstanding int64) error {
	reference, err := utils.GenerateSecureToken(8)
	if err != nil {
		return fmt.Errorf("notify.SendSettlementReceipt reference: %w", err)
	}

	data := ReceiptData{
		Reference:   reference,
		Amount:      formatRupees(ev.Amount),
		Outstanding: formatRupees(outstanding),
		SubmittedAt: ev.SubmittedAt.Format(time.RFC1123),
	}

	html, err := s.templates.GenerateSettlementReceiptHTML(data)
	if err != nil {
		return fmt.Errorf("notify.SendSettlementReceipt template: %w", err)
	}

	plain := fmt.Sprintf("Settlement of %s received on %s. Outstanding balance: %s.",
		data.Amount, data.SubmittedAt, data.Outstanding)
	return s.sender.SendEmail(ctx, toEmail, "Settlement receipt", plain, html)
}

func formatRupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
