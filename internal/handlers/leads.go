package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"brokerage-portal/internal/config"
	"brokerage-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// LeadStore persists form submissions.
type LeadStore interface {
	InsertLead(ctx context.Context, lead *models.Lead) error
}

// LeadHandler serves the contact and referral forms.
type LeadHandler struct {
	store  LeadStore
	limits config.LeadsConfig
	now    func() time.Time
}

func NewLeadHandler(store LeadStore, limits config.LeadsConfig) *LeadHandler {
	return &LeadHandler{store: store, limits: limits, now: time.Now}
}

// leadContext is the optional listing context both forms carry.
type leadContext struct {
	ListingID   string `json:"listing_id" binding:"max=64"`
	Operacion   string `json:"operacion" binding:"max=20"`
	Tipo        string `json:"tipo" binding:"max=80"`
	Comuna      string `json:"comuna" binding:"max=100"`
	Presupuesto string `json:"presupuesto" binding:"max=60"`
	Origen      string `json:"origen" binding:"max=200"`
}

type contactRequest struct {
	leadContext
	Nombre   string `json:"nombre" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=200"`
	Telefono string `json:"telefono" binding:"max=30"`
	Mensaje  string `json:"mensaje" binding:"required,min=10,max=2000"`
}

type referralRequest struct {
	leadContext
	Nombre           string `json:"nombre" binding:"required,min=2,max=100"`
	Email            string `json:"email" binding:"required,email,max=200"`
	Telefono         string `json:"telefono" binding:"max=30"`
	Mensaje          string `json:"mensaje" binding:"max=2000"`
	ReferidoNombre   string `json:"referido_nombre" binding:"required,min=2,max=100"`
	ReferidoEmail    string `json:"referido_email" binding:"required_without=ReferidoTelefono,omitempty,email,max=200"`
	ReferidoTelefono string `json:"referido_telefono" binding:"required_without=ReferidoEmail,max=30"`
}

// fieldLabels names request fields in visitor-facing messages.
var fieldLabels = map[string]string{
	"Nombre":           "El nombre",
	"Email":            "El email",
	"Telefono":         "El teléfono",
	"Mensaje":          "El mensaje",
	"ReferidoNombre":   "El nombre del referido",
	"ReferidoEmail":    "El email del referido",
	"ReferidoTelefono": "El teléfono del referido",
}

// validationError carries the message shown to the visitor.
type validationError string

func (e validationError) Error() string { return string(e) }

// bindingMessage turns a bind failure into the message shown to the visitor.
func bindingMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Solicitud inválida"
	}

	fe := errs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = "El campo " + strings.ToLower(fe.Field())
	}
	switch fe.Tag() {
	case "required":
		return label + " es obligatorio"
	case "required_without":
		return "Indica un email o teléfono del referido"
	case "email":
		return label + " no es válido"
	case "min":
		return fmt.Sprintf("%s debe tener al menos %s caracteres", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s no puede superar %s caracteres", label, fe.Param())
	}
	return label + " no es válido"
}

func trimAll(fields ...*string) {
	for _, s := range fields {
		*s = strings.TrimSpace(*s)
	}
}

func (r *leadContext) trim() {
	trimAll(&r.ListingID, &r.Operacion, &r.Tipo, &r.Comuna, &r.Presupuesto, &r.Origen)
}

// checkLength applies the configured limits to the trimmed value. A zero
// max means no upper limit.
func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || (max > 0 && n > max) {
		return validationError(fmt.Sprintf("%s debe tener entre %d y %d caracteres", field, min, max))
	}
	return nil
}

func (h *LeadHandler) checkPhone(field, value string) error {
	if h.limits.PhoneMax > 0 && utf8.RuneCountInString(value) > h.limits.PhoneMax {
		return validationError(fmt.Sprintf("%s no puede superar %d caracteres", field, h.limits.PhoneMax))
	}
	return nil
}

// checkSender runs the configured limits shared by both forms.
func (h *LeadHandler) checkSender(nombre, email, telefono string) error {
	if err := checkLength("El nombre", nombre, h.limits.NameMin, h.limits.NameMax); err != nil {
		return err
	}
	if err := checkLength("El email", email, h.limits.EmailMin, h.limits.EmailMax); err != nil {
		return err
	}
	return h.checkPhone("El teléfono", telefono)
}

func (h *LeadHandler) validateContact(r *contactRequest) error {
	if err := h.checkSender(r.Nombre, r.Email, r.Telefono); err != nil {
		return err
	}
	return checkLength("El mensaje", r.Mensaje, h.limits.MessageMin, h.limits.MessageMax)
}

func (h *LeadHandler) validateReferral(r *referralRequest) error {
	if err := h.checkSender(r.Nombre, r.Email, r.Telefono); err != nil {
		return err
	}
	if err := checkLength("El nombre del referido", r.ReferidoNombre, h.limits.NameMin, h.limits.NameMax); err != nil {
		return err
	}
	if r.ReferidoEmail == "" && r.ReferidoTelefono == "" {
		return validationError("Indica un email o teléfono del referido")
	}
	if r.ReferidoEmail != "" {
		if err := checkLength("El email del referido", r.ReferidoEmail, h.limits.EmailMin, h.limits.EmailMax); err != nil {
			return err
		}
	}
	if err := h.checkPhone("El teléfono del referido", r.ReferidoTelefono); err != nil {
		return err
	}
	if h.limits.MessageMax > 0 && utf8.RuneCountInString(r.Mensaje) > h.limits.MessageMax {
		return validationError(fmt.Sprintf("El mensaje no puede superar %d caracteres", h.limits.MessageMax))
	}
	return nil
}

func (r *leadContext) lead(kind models.LeadKind, now time.Time) *models.Lead {
	return &models.Lead{
		ID:          uuid.NewString(),
		Kind:        kind,
		ListingID:   r.ListingID,
		Operacion:   r.Operacion,
		Tipo:        r.Tipo,
		Comuna:      r.Comuna,
		Presupuesto: r.Presupuesto,
		Origen:      r.Origen,
		CreatedAt:   now,
	}
}

// Contact stores a contact form submission.
func (h *LeadHandler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingMessage(err)})
		return
	}
	req.trim()
	trimAll(&req.Nombre, &req.Email, &req.Telefono, &req.Mensaje)
	if err := h.validateContact(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	lead := req.lead(models.LeadContact, h.now())
	lead.Nombre, lead.Email, lead.Telefono, lead.Mensaje = req.Nombre, req.Email, req.Telefono, req.Mensaje
	h.save(c, lead)
}

// Referral stores a referral form submission.
func (h *LeadHandler) Referral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingMessage(err)})
		return
	}
	req.trim()
	trimAll(&req.Nombre, &req.Email, &req.Telefono, &req.Mensaje,
		&req.ReferidoNombre, &req.ReferidoEmail, &req.ReferidoTelefono)
	if err := h.validateReferral(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	lead := req.lead(models.LeadReferral, h.now())
	lead.Nombre, lead.Email, lead.Telefono, lead.Mensaje = req.Nombre, req.Email, req.Telefono, req.Mensaje
	lead.ReferidoNombre = req.ReferidoNombre
	lead.ReferidoEmail = req.ReferidoEmail
	lead.ReferidoTelefono = req.ReferidoTelefono
	h.save(c, lead)
}

func (h *LeadHandler) save(c *gin.Context, lead *models.Lead) {
	if h.store == nil {
		log.Printf("[Leads] no store configured, dropping %s from %s", lead.Kind, lead.Email)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "No pudimos enviar tu mensaje, intenta más tarde"})
		return
	}

	ctx := c.Request.Context()
	if timeout := h.limits.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := h.store.InsertLead(ctx, lead); err != nil {
		log.Printf("[Leads] failed to store %s %s: %v", lead.Kind, lead.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "No pudimos enviar tu mensaje, intenta más tarde"})
		return
	}

	log.Printf("[Leads] stored %s %s", lead.Kind, lead.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": lead.ID})
}
