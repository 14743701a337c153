package handler

import (
	"encoding/json"
	"net/http"

	"github.com/qurancoach/notifier/internal/api/respond"
	"github.com/qurancoach/notifier/internal/prayer"
	"github.com/qurancoach/notifier/internal/registry"
	"github.com/qurancoach/notifier/internal/trigger"
	"github.com/qurancoach/notifier/internal/webpush"
)

// subscribeRequest mirrors the browser PushSubscription JSON plus the
// product's notification preferences.
type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
	Timezone  string   `json:"timezone"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`

	HadithEnabled     bool `json:"hadithEnabled"`
	ChallengeEnabled  bool `json:"challengeEnabled"`
	PrayerEnabled     bool `json:"prayerEnabled"`
	DaruriSobhEnabled bool `json:"daruriSobhEnabled"`
	DaruriAsrEnabled  bool `json:"daruriAsrEnabled"`
	AkhirIshaEnabled  bool `json:"akhirIshaEnabled"`

	PrayerMinutesBefore int             `json:"prayerMinutesBefore" validate:"omitempty,min=0,max=120"`
	PrayerMinutesConfig map[string]int  `json:"prayerMinutesConfig"`
	PrayerSettings      prayer.Settings `json:"prayerSettings"`
}

// Subscribe registers or refreshes a push subscription.
// @Summary Register a push subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body subscribeRequest true "Subscription"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /subscriptions [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid subscription", err.Error())
		return
	}

	// Reject unusable key material now rather than at delivery time.
	if _, err := webpush.DecodeSubscriberPublicKey(req.Keys.P256dh); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_KEY", "Invalid p256dh key", err.Error())
		return
	}
	if _, err := webpush.DecodeAuthSecret(req.Keys.Auth); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_KEY", "Invalid auth secret", err.Error())
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		respond.WriteError(w, http.StatusBadRequest, "BAD_COORDINATES", "Latitude and longitude must be provided together")
		return
	}

	minutesBefore := req.PrayerMinutesBefore
	if minutesBefore == 0 {
		minutesBefore = trigger.DefaultMinutesBefore
	}

	sub := &registry.Subscription{
		Endpoint:            req.Endpoint,
		KeysP256dh:          req.Keys.P256dh,
		KeysAuth:            req.Keys.Auth,
		Timezone:            req.Timezone,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		HadithEnabled:       req.HadithEnabled,
		ChallengeEnabled:    req.ChallengeEnabled,
		PrayerEnabled:       req.PrayerEnabled,
		DaruriSobhEnabled:   req.DaruriSobhEnabled,
		DaruriAsrEnabled:    req.DaruriAsrEnabled,
		AkhirIshaEnabled:    req.AkhirIshaEnabled,
		PrayerMinutesBefore: minutesBefore,
		PrayerMinutesConfig: req.PrayerMinutesConfig,
		PrayerSettings:      req.PrayerSettings,
	}
	if err := h.store.Upsert(r.Context(), sub); err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_FAILED", "Could not save subscription", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusCreated, map[string]interface{}{"ok": true})
}

// preferencesRequest is a partial preference update keyed by endpoint.
type preferencesRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`

	HadithEnabled     *bool `json:"hadithEnabled"`
	ChallengeEnabled  *bool `json:"challengeEnabled"`
	PrayerEnabled     *bool `json:"prayerEnabled"`
	DaruriSobhEnabled *bool `json:"daruriSobhEnabled"`
	DaruriAsrEnabled  *bool `json:"daruriAsrEnabled"`
	AkhirIshaEnabled  *bool `json:"akhirIshaEnabled"`

	PrayerMinutesBefore *int `json:"prayerMinutesBefore" validate:"omitempty,min=0,max=120"`
}

// UpdatePreferences patches per-type enable flags for a subscription.
// @Summary Update notification preferences
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body preferencesRequest true "Preference changes"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /subscriptions [patch]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid preferences", err.Error())
		return
	}

	found, err := h.store.UpdatePreferences(r.Context(), req.Endpoint, registry.Preferences{
		Hadith:        req.HadithEnabled,
		Challenge:     req.ChallengeEnabled,
		Prayer:        req.PrayerEnabled,
		DaruriSobh:    req.DaruriSobhEnabled,
		DaruriAsr:     req.DaruriAsrEnabled,
		AkhirIsha:     req.AkhirIshaEnabled,
		MinutesBefore: req.PrayerMinutesBefore,
	})
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_FAILED", "Could not update preferences", err.Error())
		return
	}
	if !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Unknown subscription endpoint")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// unsubscribeRequest identifies the subscription to remove.
type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// Unsubscribe removes a push subscription.
// @Summary Remove a push subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body unsubscribeRequest true "Subscription endpoint"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /subscriptions [delete]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request", err.Error())
		return
	}

	if err := h.store.Delete(r.Context(), req.Endpoint); err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_FAILED", "Could not remove subscription", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"ok": true})
}
