// Package orderstatus единственный источник правил жизненного цикла заказа:
// порядок статусов, следующий статус, прогресс и отображение.
package orderstatus

import (
	"errors"

	"storefront/internal/domain"
)

// NotApplicable индекс шага для отменённого или неизвестного статуса
const NotApplicable = -1

var ErrUnknownStatus = errors.New("unknown order status")

// flow линейная последовательность; cancelled в неё не входит
var flow = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusPreparing,
	domain.OrderStatusReady,
	domain.OrderStatusDelivered,
}

// Display цвет и подпись статуса
type Display struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

var displays = map[domain.OrderStatus]Display{
	domain.OrderStatusPending:   {Color: "bg-yellow-500", Label: "Pending"},
	domain.OrderStatusPreparing: {Color: "bg-blue-500", Label: "Preparing"},
	domain.OrderStatusReady:     {Color: "bg-green-500", Label: "Ready"},
	domain.OrderStatusDelivered: {Color: "bg-gray-500", Label: "Delivered"},
	domain.OrderStatusCancelled: {Color: "bg-red-500", Label: "Cancelled"},
}

// Step шаг трекинга заказа для покупателя
type Step struct {
	Status domain.OrderStatus `json:"status"`
	Label  string             `json:"label"`
}

var steps = []Step{
	{Status: domain.OrderStatusPending, Label: "Order Placed"},
	{Status: domain.OrderStatusPreparing, Label: "Preparing"},
	{Status: domain.OrderStatusReady, Label: "Ready"},
	{Status: domain.OrderStatusDelivered, Label: "Delivered"},
}

// Action действие над заказом, доступное роли
type Action string

const (
	ActionAdvance Action = "advance"
	ActionCancel  Action = "cancel"
)

// Sequence копия линейной последовательности статусов
func Sequence() []domain.OrderStatus {
	out := make([]domain.OrderStatus, len(flow))
	copy(out, flow)
	return out
}

// Steps шаги трекинга в порядке прохождения
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Parse проверяет, что строка является одним из пяти статусов
func Parse(s string) (domain.OrderStatus, error) {
	st := domain.OrderStatus(s)
	if _, ok := displays[st]; !ok {
		return "", ErrUnknownStatus
	}
	return st, nil
}

// StepIndex позиция статуса в последовательности или NotApplicable
func StepIndex(s domain.OrderStatus) int {
	for i, v := range flow {
		if v == s {
			return i
		}
	}
	return NotApplicable
}

// Next следующий статус; false для delivered, cancelled и неизвестных значений
func Next(current domain.OrderStatus) (domain.OrderStatus, bool) {
	i := StepIndex(current)
	if i == NotApplicable || i == len(flow)-1 {
		return "", false
	}
	return flow[i+1], true
}

// CanAdvance статус не терминальный
func CanAdvance(s domain.OrderStatus) bool {
	_, ok := Next(s)
	return ok
}

// IsTerminal delivered или cancelled
func IsTerminal(s domain.OrderStatus) bool {
	return s == domain.OrderStatusDelivered || s == domain.OrderStatusCancelled
}

// CanTransition переход вперёд на один шаг либо отмена из нетерминального статуса
func CanTransition(from, to domain.OrderStatus) bool {
	if to == domain.OrderStatusCancelled {
		return CanAdvance(from)
	}
	next, ok := Next(from)
	return ok && next == to
}

// DisplayFor цвет и подпись; для неизвестного статуса подпись равна значению
func DisplayFor(s domain.OrderStatus) Display {
	if d, ok := displays[s]; ok {
		return d
	}
	return Display{Color: "bg-gray-500", Label: string(s)}
}

// Actions действия, которые интерфейс может предложить роли.
// Это гейтинг на уровне UI, окончательное решение за OrderService.
func Actions(role domain.Role, s domain.OrderStatus) []Action {
	if role != domain.RoleStaff && role != domain.RoleAdmin {
		return nil
	}
	if !CanAdvance(s) {
		return nil
	}
	return []Action{ActionAdvance, ActionCancel}
}

// View всё, что нужно экрану для отображения статуса заказа
type View struct {
	Display
	Step    int                `json:"step"`
	Next    domain.OrderStatus `json:"next,omitempty"`
	Actions []Action           `json:"actions"`
}

func ViewFor(role domain.Role, s domain.OrderStatus) View {
	next, _ := Next(s)
	actions := Actions(role, s)
	if actions == nil {
		actions = []Action{}
	}
	return View{
		Display: DisplayFor(s),
		Step:    StepIndex(s),
		Next:    next,
		Actions: actions,
	}
}
