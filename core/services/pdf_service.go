package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/resqnow/dispatch-core/core/logger"
)

// InvoicePDFData carries everything the Payment Finalizer's invoice
// renderer needs; the canonical values (amounts, invoice number) always
// come from the Invoice row, never recomputed inside the PDF layer.
type InvoicePDFData struct {
	InvoiceNumber string
	ServiceType   string
	ContactName   string
	ContactEmail  string
	BaseAmount    float64
	PlatformFee   float64
	GSTAmount     float64
	TotalAmount   float64
}

// IInvoicePDFService renders the settlement document the Payment
// Finalizer attaches to a completed Invoice row.
type IInvoicePDFService interface {
	GenerateInvoicePDF(data InvoicePDFData) ([]byte, error)
}

// InvoicePDFService hand-rolls PDF generation with gofpdf directly: a
// plain *gofpdf.Fpdf, one method per visual section, no template engine.
type InvoicePDFService struct {
	logger logger.Logger
}

// NewPDFService creates a new invoice PDF service instance.
func NewPDFService(logger logger.Logger) IInvoicePDFService {
	return &InvoicePDFService{logger: logger}
}

// GenerateInvoicePDF renders a single-page itemized invoice: base amount,
// platform fee, and total, in the request's settlement currency.
func (s *InvoicePDFService) GenerateInvoicePDF(data InvoicePDFData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	s.addHeader(pdf, data)
	s.addCustomerInfo(pdf, data)
	s.addAmountTable(pdf, data)
	s.addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error(context.Background(), "failed to generate invoice PDF", logger.Fields{"error": err.Error()})
		return nil, fmt.Errorf("failed to generate invoice PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *InvoicePDFService) addHeader(pdf *gofpdf.Fpdf, data InvoicePDFData) {
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(30, 90, 160)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "Invoice Number: "+data.InvoiceNumber)
	pdf.Ln(5)
	pdf.Cell(0, 6, "Service: "+data.ServiceType)
	pdf.Ln(10)
}

func (s *InvoicePDFService) addCustomerInfo(pdf *gofpdf.Fpdf, data InvoicePDFData) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(30, 90, 160)
	pdf.Cell(0, 8, "Billed To")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	if data.ContactName != "" {
		pdf.Cell(0, 5, data.ContactName)
		pdf.Ln(4)
	}
	if data.ContactEmail != "" {
		pdf.Cell(0, 5, data.ContactEmail)
		pdf.Ln(4)
	}
	pdf.Ln(6)
}

func (s *InvoicePDFService) addAmountTable(pdf *gofpdf.Fpdf, data InvoicePDFData) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(30, 90, 160)
	pdf.Cell(0, 8, "Charges")
	pdf.Ln(6)

	pdf.SetFillColor(30, 90, 160)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(130, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 7, "Amount", "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(130, 6, "Service base amount", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", data.BaseAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(130, 6, "Platform fee", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", data.PlatformFee), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	if data.GSTAmount > 0 {
		pdf.CellFormat(130, 6, "GST", "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", data.GSTAmount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 7, fmt.Sprintf("%.2f", data.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(10)
}

func (s *InvoicePDFService) addFooter(pdf *gofpdf.Fpdf) {
	pdf.SetY(-25)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.Cell(0, 5, "Invoice generated on "+time.Now().Format("2006-01-02 15:04"))
}
