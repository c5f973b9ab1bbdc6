// Package smtp открывает авторизованные SMTP-сессии для отправки писем.
package smtp

import "io"

// Client часть *smtp.Client, нужная отправителю.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает сессии и отдает адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	From() string
}
