package service

import (
	"fmt"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/notify"
)

func statusChangedNotification(buyer *model.User, number string, status model.OrderStatus) notify.Notification {
	return notify.Notification{
		Recipients: []string{buyer.Email},
		Subject:    fmt.Sprintf("Order #%s status changed", number),
		Body: fmt.Sprintf("%s, the status of your order #%s has been changed to %q.",
			buyer.FullName(), number, status.Title()),
	}
}

func newOrderNotifications(buyer *model.User, o model.PromotedOrder) []notify.Notification {
	ns := []notify.Notification{statusChangedNotification(buyer, o.Number, model.OrderStatusNew)}
	for _, email := range o.SupplierEmails {
		ns = append(ns, notify.Notification{
			Recipients: []string{email},
			Subject:    fmt.Sprintf("New order #%s received", o.Number),
			Body:       fmt.Sprintf("Details of order #%s are available in the \"Orders\" section.", o.Number),
		})
	}
	return ns
}

func canceledOrderNotifications(buyer *model.User, o model.PromotedOrder) []notify.Notification {
	ns := []notify.Notification{statusChangedNotification(buyer, o.Number, model.OrderStatusCanceled)}
	for _, email := range o.SupplierEmails {
		ns = append(ns, notify.Notification{
			Recipients: []string{email},
			Subject:    fmt.Sprintf("Order #%s status changed", o.Number),
			Body:       fmt.Sprintf("The status of order #%s has been changed to %q.", o.Number, model.OrderStatusCanceled.Title()),
		})
	}
	return ns
}

func welcomeNotification(u model.User) notify.Notification {
	return notify.Notification{
		Recipients: []string{u.Email},
		Subject:    "Welcome to the retail procurement service!",
		Body:       fmt.Sprintf("Thank you for registering, %s!\nWe are glad to see you on our platform.", u.FullName()),
	}
}
