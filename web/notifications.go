package web

import (
	"net/http"
	"strconv"

	"github.com/nasermirzaei89/vidtube/failure"
)

func (h *Handler) HandleListNotifications() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unreadOnly := false

		if raw := r.URL.Query().Get("unread"); raw != "" {
			var err error

			unreadOnly, err = strconv.ParseBool(raw)
			if err != nil {
				handleServiceError(w, r, &failure.ValidationError{Field: "unread", Reason: "must be a boolean"})

				return
			}
		}

		items, err := h.notificationsSvc.ListNotifications(r.Context(), currentUserID(r), unreadOnly)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, mapSlice(items, newNotificationResponse))
	})
}

func (h *Handler) HandleReadNotification() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notification, err := h.notificationsSvc.ReadNotification(r.Context(), currentUserID(r), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newNotificationResponse(notification))
	})
}
