package router

import (
	"papeleria/internal/config"
	"papeleria/internal/handler"
	"papeleria/internal/middleware"
	"papeleria/internal/service"
	"papeleria/internal/transaccion"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the already-built services and infrastructure the routes use.
type Deps struct {
	Backend   handler.BackendPinger
	Redis     *redis.Client // nil when Redis is disabled
	Sesiones  service.SesionService
	Productos service.ProductoService
	Ventas    service.VentaService
}

// New wires the handlers and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← BackendClient / cache / events
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))

	// ── Handlers ─────────────────────────────────────────────────────────────
	sesionesH := handler.NewSesionesHandler(d.Sesiones, cfg.TopProductos)
	productosH := handler.NewProductosHandler(d.Productos)
	ventasH := handler.NewVentasHandler(d.Ventas)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(d.Backend, d.Redis))

	v1 := r.Group("/v1")
	{
		v1.POST("/sesiones", sesionesH.Abrir)

		ses := v1.Group("/sesiones/:sid")
		{
			ses.DELETE("", sesionesH.Cerrar)
			ses.GET("/productos", sesionesH.Productos)
			ses.GET("/ventas", sesionesH.Ventas)
			ses.GET("/ventas/recientes", sesionesH.VentasRecientes)
			ses.GET("/compras", sesionesH.Compras)
			ses.GET("/dashboard", sesionesH.Dashboard)
			ses.POST("/revalidar", sesionesH.Revalidar)

			for path, kind := range map[string]transaccion.Kind{"/venta": transaccion.Venta, "/compra": transaccion.Compra} {
				tx := ses.Group(path)
				tx.GET("", sesionesH.Transaccion(kind))
				tx.POST("/items", sesionesH.AgregarLinea(kind))
				tx.DELETE("/items/:index", sesionesH.QuitarLinea(kind))
				tx.POST("/confirmar", sesionesH.Confirmar(kind))
			}
		}

		prods := v1.Group("/productos")
		{
			prods.GET("", productosH.Listar)
			prods.POST("", productosH.Crear)
			prods.GET("/:id", productosH.ObtenerPorID)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Eliminar)
		}

		v1.GET("/ventas/:id", ventasH.ObtenerVenta)
		v1.GET("/ventas/:id/ticket", ventasH.Ticket)
		v1.GET("/compras/:id", ventasH.ObtenerCompra)
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
