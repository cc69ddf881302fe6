// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов и ошибок (ключи API, пароли в DSN). Цель — исключить
// утечки секретов, сохранив полезный для отладки контекст (хост, путь).
package redact

import (
	"net/url"
	"strings"
)

// Mask — литерал-заглушка для секретов.
const Mask = "REDACTED"

// URL маскирует пароль userinfo и значения query-параметров keys
// (имена сравниваются без учёта регистра).
//
// Правила:
//   - строка, не разбираемая как абсолютный URL, заменяется на "***";
//   - пароль заменяется на "xxxxx" (url.URL.Redacted);
//   - прочие части URL возвращаются без изменений.
//
// Примеры:
//
//	"postgres://u:p@db:5432/x"               -> "postgres://u:xxxxx@db:5432/x"
//	"https://h/v2?apiKey=abc&q=x", "apikey"  -> "https://h/v2?apiKey=REDACTED&q=x"
func URL(raw string, keys ...string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}

	if len(keys) > 0 && u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			for _, key := range keys {
				if strings.EqualFold(k, key) {
					q.Set(k, Mask)
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.Redacted()
}

// Error возвращает ошибку, в тексте которой все вхождения secrets
// заменены на Mask. errors.Is/As продолжают работать через Unwrap.
// Пустые secrets игнорируются; nil -> nil.
func Error(err error, secrets ...string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	changed := false
	for _, s := range secrets {
		if s == "" || !strings.Contains(msg, s) {
			continue
		}
		msg = strings.ReplaceAll(msg, s, Mask)
		changed = true
	}

	if !changed {
		return err
	}

	return &redactedError{err: err, msg: msg}
}

type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
