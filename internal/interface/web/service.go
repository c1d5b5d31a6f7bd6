package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/config"
)

type Config struct {
	Port uint32
}

type Service struct {
	server *http.Server
	cfg    *config.Config
}

// NewService wires the application service behind the HTTP listener. The
// config must have been validated beforehand.
func NewService(svcConfig Config, cfg *config.Config) (*Service, error) {
	appSvc, err := cfg.AppService()
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", svcConfig.Port),
		Handler:      NewHandler(appSvc),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
	return &Service{server: server, cfg: cfg}, nil
}

func (s *Service) Start() error {
	appSvc, err := s.cfg.AppService()
	if err != nil {
		return err
	}
	if err := appSvc.Start(); err != nil {
		return err
	}

	go func() {
		log.Infof("listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server exited")
		}
	}()
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// nolint:all
	s.server.Shutdown(ctx)

	if appSvc, err := s.cfg.AppService(); err == nil {
		appSvc.Stop()
	}
	if repo := s.cfg.RepoManager(); repo != nil {
		repo.Close()
	}
}
