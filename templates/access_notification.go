package templates

import (
	"strconv"
	"strings"

	"servicelist-service/internal/domain/entity"
)

// Operator-facing copy for the approval workflow. The admin chat runs in
// Portuguese; keep all card text and callback toasts here.

// FormatRequestMessage renders the approval card body for a new or repeated
// access request
func FormatRequestMessage(request *entity.AccessRequest) string {
	lines := []string{
		"Novo pedido de acesso",
		"",
		"Nome: " + request.Label(),
		"Email: " + emailOrDash(request.Email),
		"UID: " + request.UID,
		"Tentativas: " + strconv.Itoa(request.RequestCount),
	}
	return strings.Join(lines, "\n")
}

// FormatResolvedMessage renders the card body after a decision, replacing the
// pending card so the buttons disappear alongside it
func FormatResolvedMessage(request *entity.AccessRequest, status entity.RequestStatus) string {
	headline := "Pedido atualizado"
	switch status {
	case entity.RequestApproved:
		headline = "Pedido aprovado"
	case entity.RequestDenied:
		headline = "Pedido negado"
	case entity.RequestBlocked:
		headline = "Pedido bloqueado"
	}

	lines := []string{
		headline,
		"",
		"Nome: " + request.Label(),
		"Email: " + emailOrDash(request.Email),
		"UID: " + request.UID,
	}
	return strings.Join(lines, "\n")
}

// BuildKeyboard returns the three-decision inline keyboard for a uid
func BuildKeyboard(uid string) entity.InlineKeyboardMarkup {
	return entity.InlineKeyboardMarkup{
		InlineKeyboard: [][]entity.InlineKeyboardButton{
			{
				{Text: "Aprovar", CallbackData: entity.EncodeCallbackData("a", uid)},
				{Text: "Negar", CallbackData: entity.EncodeCallbackData("d", uid)},
				{Text: "Bloquear", CallbackData: entity.EncodeCallbackData("b", uid)},
			},
		},
	}
}

// Callback toast texts shown to the operator who tapped a button
const (
	ToastInvalidAction = "Ação inválida."
	ToastUnauthorized  = "Chat não autorizado."
	ToastNotFound      = "Pedido não encontrado."
	ToastInternalError = "Erro interno ao processar. Tenta novamente."
)

// ToastDecided renders the toast for a freshly applied decision
func ToastDecided(status entity.RequestStatus) string {
	return "Pedido " + string(status) + "."
}

// ToastAlreadyResolved renders the toast for an idempotent repeat tap
func ToastAlreadyResolved(status entity.RequestStatus) string {
	return "Já resolvido: " + string(status) + "."
}

func emailOrDash(email string) string {
	if email == "" {
		return "-"
	}
	return email
}
