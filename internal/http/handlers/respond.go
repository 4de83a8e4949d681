package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The API speaks one envelope: {"status":"success","data":...} on the
// happy path, {"status":"fail"|"error","message":...} otherwise. "fail"
// is a client problem (4xx), "error" is ours (5xx) and never carries
// internal detail.

func RespondSuccess(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"status":  "success",
		"message": message,
	})
}

func RespondFail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"status":  "fail",
		"message": message,
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondFail(ctx, http.StatusBadRequest, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondFail(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondFail(ctx, http.StatusNotFound, message)
}

func RespondInternal(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": message,
	})
}
