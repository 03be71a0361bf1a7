package notify

import (
	"bytes"
	"html/template"
	"log"
)

// TemplateManager holds the parsed notification templates.
type TemplateManager struct {
	ReceiptTmpl *template.Template
}

// NewTemplateManager parses all notification templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	receiptTmpl, err := template.New("settlementReceipt").Parse(settlementReceiptTemplate)
	if err != nil {
		return nil, err
	}

	log.Println("Notification templates parsed successfully.")
	return &TemplateManager{ReceiptTmpl: receiptTmpl}, nil
}

// ReceiptData holds the dynamic data for a settlement receipt email.
type ReceiptData struct {
	Reference   string
	Amount      string
	Outstanding string
	SubmittedAt string
}

// GenerateSettlementReceiptHTML executes the receipt template with the provided data.
func (tm *TemplateManager) GenerateSettlementReceiptHTML(data ReceiptData) (string, error) {
	var body bytes.Buffer
	if err := tm.ReceiptTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// --- HTML Template Definitions ---

const settlementReceiptTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Settlement Receipt</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Settlement received</h2>
	<p>We have received your cash settlement of <strong>{{.Amount}}</strong> on {{.SubmittedAt}}.</p>
	<p>Your remaining cash-on-delivery balance to submit is <strong>{{.Outstanding}}</strong>.</p>
	<p>Receipt reference: {{.Reference}}</p>
	<p>Keep this email for your records.</p>
</body>
</html>
`
