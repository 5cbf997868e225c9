package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// readyTimeout bounds each dependency check.
const readyTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type readiness interface {
	IsReady() bool
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Checks the identity store, the secret store and that signing keys are loaded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"one or more dependencies are down"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db, secrets pinger, signer readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{Database: "ok", SecretStore: "ok", Signer: "ok"}
		status, code := "ok", http.StatusOK
		degrade := func(field *string, msg string) {
			*field = "error: " + msg
			status, code = "degraded", http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			degrade(&checks.Database, err.Error())
		}
		if err := secrets.Ping(ctx); err != nil {
			degrade(&checks.SecretStore, err.Error())
		}
		if !signer.IsReady() {
			degrade(&checks.Signer, "no keys loaded")
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
