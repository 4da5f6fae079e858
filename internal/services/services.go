package services

import (
	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/config"
	"github.com/mikkqu/rc-auth/internal/infrastructure/rcapi"
	"github.com/mikkqu/rc-auth/internal/infrastructure/redis"
	"github.com/mikkqu/rc-auth/internal/services/oauth"
	"github.com/mikkqu/rc-auth/internal/services/session"
)

type Services struct {
	cfg            *config.Config
	redisService   *redis.Service
	sessionService *session.Service
	oauthClient    *oauth.Client
	profileAPI     *rcapi.Service
}

// Initialize wires up every service from the loaded configuration.
func Initialize(cfg *config.Config) *Services {
	log.Info().Msg("Initializing core services")

	// Redis is optional; the session service falls back to memory without it.
	redisService := redis.NewService(cfg.RedisURL, cfg.RedisPassword)

	sessionService := session.NewService(redisService, cfg)
	oauthClient := oauth.NewClient(cfg)
	profileAPI := rcapi.NewService(cfg.APIBaseURL)

	return &Services{
		cfg:            cfg,
		redisService:   redisService,
		sessionService: sessionService,
		oauthClient:    oauthClient,
		profileAPI:     profileAPI,
	}
}

func (s *Services) SessionService() *session.Service {
	return s.sessionService
}

func (s *Services) OAuthClient() *oauth.Client {
	return s.oauthClient
}

func (s *Services) ProfileAPI() *rcapi.Service {
	return s.profileAPI
}

func (s *Services) ClientOrigin() string {
	return s.cfg.ClientOrigin
}

// Close releases infrastructure connections.
func (s *Services) Close() {
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
