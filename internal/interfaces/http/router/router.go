package router

import (
	"slices"

	"github.com/buildtrack/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under one prefix
type Router struct {
	engine     *gin.Engine
	prefix     string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithPrefix mounts the registrars under prefix instead of /api
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.prefix = prefix
	}
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, prefix: "/api"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every queued registrar
func (r *Router) Setup() {
	api := r.engine.Group(r.prefix)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// ResourceGroup is a flat set of endpoints under a shared path segment.
// Every endpoint is registered for any method; when Allow is set, other
// methods are answered with 405 before the group's middleware runs.
type ResourceGroup struct {
	prefix     string
	allow      []string
	middleware []gin.HandlerFunc
	endpoints  []endpoint
}

type endpoint struct {
	path    string
	handler gin.HandlerFunc
}

func NewResourceGroup(prefix string) *ResourceGroup {
	return &ResourceGroup{prefix: prefix}
}

// Allow restricts every endpoint to methods
func (g *ResourceGroup) Allow(methods ...string) *ResourceGroup {
	g.allow = methods
	return g
}

// Use adds middleware that runs after the method check
func (g *ResourceGroup) Use(middleware ...gin.HandlerFunc) *ResourceGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Handle adds an endpoint at prefix/path
func (g *ResourceGroup) Handle(path string, h gin.HandlerFunc) *ResourceGroup {
	g.endpoints = append(g.endpoints, endpoint{path: path, handler: h})
	return g
}

// Paths returns the endpoint paths in registration order
func (g *ResourceGroup) Paths() []string {
	paths := make([]string, len(g.endpoints))
	for i, e := range g.endpoints {
		paths[i] = g.prefix + e.path
	}
	return paths
}

// RegisterRoutes implements RouteRegistrar
func (g *ResourceGroup) RegisterRoutes(rg *gin.RouterGroup) {
	chain := make([]gin.HandlerFunc, 0, len(g.middleware)+2)
	if len(g.allow) > 0 {
		chain = append(chain, requireMethod(g.allow))
	}
	chain = append(chain, g.middleware...)

	group := rg.Group(g.prefix)
	for _, e := range g.endpoints {
		group.Any(e.path, append(slices.Clone(chain), e.handler)...)
	}
}

func requireMethod(allowed []string) gin.HandlerFunc {
	base := &handler.BaseHandler{}
	return func(c *gin.Context) {
		if !slices.Contains(allowed, c.Request.Method) {
			base.MethodNotAllowed(c, allowed...)
			return
		}
		c.Next()
	}
}
