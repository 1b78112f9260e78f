package service

import (
	"context"
	"time"

	"papeleria/internal/events"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// SesionService keeps the live page sessions. Sessions expire after ttl
// without use; expiry and explicit close both tear down the session cache.
type SesionService interface {
	Abrir() *Sesion
	Obtener(id string) (*Sesion, error)
	Cerrar(id string) error
	// Revalidar refetches claves in every live session.
	Revalidar(ctx context.Context, claves ...string)
	Count() int
	Stop()
}

type sesionService struct {
	sesiones    *gocache.Cache
	backend     Backend
	pub         events.Publisher
	unsubscribe func()
}

// NewSesionService registers on bus so that every mutation, local or relayed
// from another instance, revalidates the affected keys. Builders publish
// through pub, which may be the bus itself or a Redis fan-out around it.
func NewSesionService(backend Backend, bus *events.Bus, pub events.Publisher, ttl time.Duration) SesionService {
	s := &sesionService{
		sesiones: gocache.New(ttl, ttl/2),
		backend:  backend,
		pub:      pub,
	}
	s.sesiones.OnEvicted(func(id string, v interface{}) {
		if ses, ok := v.(*Sesion); ok {
			ses.Close()
			log.Debug().Str("sesion", id).Msg("sesion cerrada")
		}
	})
	if bus != nil {
		s.unsubscribe = bus.Subscribe(func(ctx context.Context, ev events.MutationEvent) {
			go s.Revalidar(context.WithoutCancel(ctx), ev.Claves...)
		})
	}
	return s
}

func (s *sesionService) Abrir() *Sesion {
	ses := newSesion(uuid.NewString(), s.backend, s.pub)
	s.sesiones.SetDefault(ses.ID, ses)
	log.Debug().Str("sesion", ses.ID).Msg("sesion abierta")
	return ses
}

// Obtener returns the session and extends its expiry.
func (s *sesionService) Obtener(id string) (*Sesion, error) {
	v, ok := s.sesiones.Get(id)
	if !ok {
		return nil, ErrSesionNoEncontrada
	}
	ses := v.(*Sesion)
	s.sesiones.SetDefault(id, ses)
	return ses, nil
}

func (s *sesionService) Cerrar(id string) error {
	if _, ok := s.sesiones.Get(id); !ok {
		return ErrSesionNoEncontrada
	}
	s.sesiones.Delete(id)
	return nil
}

func (s *sesionService) Revalidar(ctx context.Context, claves ...string) {
	for id, it := range s.sesiones.Items() {
		ses := it.Object.(*Sesion)
		if err := ses.Revalidar(ctx, claves...); err != nil {
			log.Warn().Err(err).Str("sesion", id).Strs("claves", claves).Msg("revalidacion fallida")
		}
	}
}

func (s *sesionService) Count() int { return s.sesiones.ItemCount() }

// Stop detaches from the bus and closes every session.
func (s *sesionService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	for id := range s.sesiones.Items() {
		s.sesiones.Delete(id)
	}
}
