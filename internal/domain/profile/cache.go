package profile

import (
	"context"
	"time"
)

// Cache - интерфейс кеширования профилей.
// Реализуется в infrastructure/redis. Запись в журнал очков обязана
// инвалидировать кеш соответствующего студента до возврата управления,
// чтобы последующее чтение никогда не видело устаревший профиль.
//
// Каждому студенту соответствует счётчик инвалидаций. Читатель снимает
// его значение через Generation до чтения журнала и передаёт в Set:
// запись принимается только если счётчик не изменился. Профиль,
// вычисленный до конкурентного Invalidate, не может перекрыть его.
type Cache interface {
	// Get возвращает закешированный профиль или (nil, nil) при промахе.
	Get(ctx context.Context, studentID string) (*Profile, error)

	// Generation возвращает текущее значение счётчика инвалидаций студента.
	Generation(ctx context.Context, studentID string) (int64, error)

	// Set сохраняет профиль с ограниченным временем жизни, если счётчик
	// инвалидаций студента всё ещё равен generation. Иначе запись
	// молча отбрасывается.
	Set(ctx context.Context, p *Profile, ttl time.Duration, generation int64) error

	// Invalidate удаляет профиль студента из кеша и увеличивает счётчик.
	Invalidate(ctx context.Context, studentID string) error
}
