// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"unicode"
)

// IsValidOrderNumber проверяет формат номера заказа "<user_id>-<sequence>":
// две непустые группы ASCII-цифр, разделённые одним дефисом.
func IsValidOrderNumber(number string) bool {
	if number == "" {
		return false
	}

	hyphens := 0
	digitsBefore, digitsAfter := 0, 0

	for i := 0; i < len(number); i++ {
		ch := number[i]
		switch {
		case ch == '-':
			hyphens++
		case ch >= '0' && ch <= '9':
			if hyphens == 0 {
				digitsBefore++
			} else {
				digitsAfter++
			}
		default:
			return false
		}
	}

	return hyphens == 1 && digitsBefore > 0 && digitsAfter > 0
}

// IsValidPhone допускает цифры, пробелы, скобки, дефисы и ведущий плюс; цифр от 5 до 20.
func IsValidPhone(phone string) bool {
	digits := 0
	for i, ch := range phone {
		switch {
		case unicode.IsDigit(ch):
			digits++
		case ch == '+' && i == 0:
		case ch == ' ' || ch == '-' || ch == '(' || ch == ')':
		default:
			return false
		}
	}
	return digits >= 5 && digits <= 20
}

// IsValidEmail проверяет адрес электронной почты без отображаемого имени.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
