package web

import (
	"net/http"

	"github.com/nasermirzaei89/vidtube/contents"
)

func (h *Handler) HandleUploadVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form, err := parseMultipart(w, r, maxVideoRequestSize)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}
		defer form.close()

		file, err := form.file("video")
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		video, err := h.contentsSvc.UploadVideo(r.Context(), contents.UploadVideoRequest{
			ActorID:     currentUserID(r),
			File:        file,
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			Keywords:    r.FormValue("keywords"),
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, newVideoResponse(video))
	})
}

func (h *Handler) HandleGetVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detail, err := h.contentsSvc.GetVideo(r.Context(), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, newVideoDetailResponse(detail))
	})
}

type updateVideoRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Keywords    []string `json:"keywords"`
}

func (h *Handler) HandleUpdateVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req updateVideoRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		video, err := h.contentsSvc.UpdateVideo(r.Context(), contents.UpdateVideoRequest{
			ActorID:     currentUserID(r),
			VideoID:     r.PathValue("id"),
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Keywords:    req.Keywords,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newVideoResponse(video))
	})
}

func (h *Handler) HandleDeleteVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.contentsSvc.DeleteVideo(r.Context(), currentUserID(r), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) HandleLikeVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, err := h.reactionsSvc.LikeVideo(r.Context(), currentUserID(r), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newReactionResponse(view))
	})
}

func (h *Handler) HandleDislikeVideo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, err := h.reactionsSvc.DislikeVideo(r.Context(), currentUserID(r), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newReactionResponse(view))
	})
}
