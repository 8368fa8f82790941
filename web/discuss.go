package web

import (
	"net/http"

	"github.com/nasermirzaei89/vidtube/discuss"
)

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handler) HandleCreateComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		comment, err := h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
			ActorID: currentUserID(r),
			VideoID: r.PathValue("id"),
			Text:    req.Text,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, newCommentResponse(comment))
	})
}

func (h *Handler) HandleListComments() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		comments, err := h.discussSvc.ListComments(r.Context(), r.PathValue("id"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, mapSlice(comments, newCommentResponse))
	})
}

func (h *Handler) HandleGetComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		comment, err := h.discussSvc.GetComment(r.Context(), r.PathValue("videoId"), r.PathValue("commentId"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, newCommentResponse(comment))
	})
}

func (h *Handler) HandleUpdateComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		comment, err := h.discussSvc.UpdateComment(r.Context(), discuss.UpdateCommentRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
			Text:      req.Text,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusAccepted, newCommentResponse(comment))
	})
}

func (h *Handler) HandleDeleteComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.discussSvc.DeleteComment(r.Context(), discuss.DeleteCommentRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) HandleCreateReply() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		reply, err := h.discussSvc.CreateReply(r.Context(), discuss.CreateReplyRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
			Text:      req.Text,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, newReplyResponse(reply))
	})
}

func (h *Handler) HandleListReplies() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replies, err := h.discussSvc.ListReplies(r.Context(), r.PathValue("videoId"), r.PathValue("commentId"))
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, mapSlice(replies, newReplyResponse))
	})
}

func (h *Handler) HandleDeleteReply() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.discussSvc.DeleteReply(r.Context(), discuss.DeleteReplyRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
			ReplyID:   r.PathValue("replyId"),
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) HandleCreateChildReply() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		reply, err := h.discussSvc.CreateChildReply(r.Context(), discuss.CreateChildReplyRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
			ReplyID:   r.PathValue("replyId"),
			Text:      req.Text,
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, newReplyResponse(reply))
	})
}

func (h *Handler) HandleDeleteChildReply() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.discussSvc.DeleteChildReply(r.Context(), discuss.DeleteChildReplyRequest{
			ActorID:   currentUserID(r),
			VideoID:   r.PathValue("videoId"),
			CommentID: r.PathValue("commentId"),
			ReplyID:   r.PathValue("replyId"),
			ChildID:   r.PathValue("childId"),
		})
		if err != nil {
			handleServiceError(w, r, err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
