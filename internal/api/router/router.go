package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/catppuccinifier/internal/api/handlers/image"
	"github.com/aliskhannn/catppuccinifier/internal/middleware"
)

func Setup(h *image.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/jobs", h.Submit)                      // submitting a processing request
	api.GET("/jobs/:submitter", h.Status)            // active job status or latest result
	api.DELETE("/jobs/:submitter", h.Cancel)         // cancelling the active job
	api.GET("/results/:id", h.Result)                // finished job result
	api.GET("/results/:id/outputs/:index", h.Output) // output bytes
	api.GET("/options", h.Options)                   // flavors, algorithms, formats...

	return r
}
