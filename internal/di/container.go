package di

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"realtime-gateway/internal/auth"
	"realtime-gateway/internal/auth/config"
	"realtime-gateway/internal/dataservice"
	"realtime-gateway/internal/gateway"
	"realtime-gateway/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container represents a dependency injection container with proper lifecycle management
// Following hexagonal architecture principles.
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]func() (interface{}, error)

	// Core module instances - primary adapters in hexagonal architecture
	AuthModule    *auth.AuthModule
	GatewayServer *gateway.Server

	// Infrastructure dependencies - secondary adapters
	MongoDB     *mongo.Database
	RedisClient *redis.Client

	// Configuration - application settings
	AuthConfig    *config.Config
	GatewayConfig *gateway.Config

	// Cross-cutting concerns
	Logger logger.Logger
}

// NewContainer creates a new DI container with the service registries
// initialized and ready for Register/RegisterFactory.
func NewContainer() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]func() (interface{}, error)),
	}
}

// InitializeAuth initializes the authentication module, the identity
// boundary both REST login and the gateway's AUTH handshake depend on.
func (c *Container) InitializeAuth(mongoDB *mongo.Database, authConfig *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mongoDB == nil {
		return fmt.Errorf("mongoDB is required for auth module initialization")
	}
	if authConfig == nil {
		return fmt.Errorf("authConfig is required for auth module initialization")
	}

	c.MongoDB = mongoDB
	c.AuthConfig = authConfig

	authModule, err := auth.NewAuthModule(mongoDB, authConfig, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}

	c.AuthModule = authModule
	return nil
}

// InitializeGateway wires the realtime subscription gateway: the
// MongoDB-backed dataservice collaborators (items, schema), the identity
// adapters wrapping the auth module's usecase, and gateway.NewServer's own
// internal assembly of the Registry/Presence/Manager/AuthController.
func (c *Container) InitializeGateway(cfg *gateway.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg == nil {
		return fmt.Errorf("gateway config is required for gateway initialization")
	}
	if c.AuthModule == nil {
		return fmt.Errorf("auth module must be initialized before the gateway")
	}
	if c.MongoDB == nil {
		return fmt.Errorf("MongoDB must be initialized before the gateway")
	}

	c.GatewayConfig = cfg

	authUsecase := c.AuthModule.GetUsecase()
	identity := dataservice.NewIdentityAdapter(authUsecase)
	authSvc := dataservice.NewAuthService(authUsecase)

	items := dataservice.NewItemsStore(c.MongoDB)
	schemas := dataservice.NewSchemaCache(c.MongoDB)

	server, err := gateway.NewServer(cfg, items, items, schemas, identity, authSvc, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway server: %w", err)
	}

	// REDIS_ADDR is optional: this process's in-memory presence map stays
	// authoritative for its own dispatch decisions (see DESIGN.md), the
	// mirror only broadcasts transitions for any other instance watching.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		server = server.WithRedisMirror(gateway.NewRedisMirror(rdb, c.Logger))
		c.RedisClient = rdb
	}

	c.GatewayServer = server
	return nil
}

// Register registers a service instance following dependency injection principles
func (c *Container) Register(service interface{}) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	serviceType := reflect.TypeOf(service)
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	c.services[serviceType] = service
	return nil
}

// RegisterFactory registers a factory function for lazy service instantiation
func (c *Container) RegisterFactory(serviceType reflect.Type, factory func() (interface{}, error)) error {
	if serviceType == nil {
		return fmt.Errorf("serviceType cannot be nil")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[serviceType] = factory
	return nil
}

// Resolve resolves a service by type with thread-safe access
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	if serviceType == nil {
		return nil, fmt.Errorf("serviceType cannot be nil")
	}

	c.mu.RLock()

	if service, exists := c.services[serviceType]; exists {
		c.mu.RUnlock()
		return service, nil
	}

	if factory, exists := c.factories[serviceType]; exists {
		c.mu.RUnlock()

		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service of type %v: %w", serviceType, err)
		}

		c.mu.Lock()
		c.services[serviceType] = service
		c.mu.Unlock()

		return service, nil
	}

	c.mu.RUnlock()
	return nil, fmt.Errorf("service of type %v not registered", serviceType)
}

// ResolveByInterface resolves a service by interface type (supports polymorphism)
func (c *Container) ResolveByInterface(interfaceType reflect.Type) (interface{}, error) {
	if interfaceType == nil {
		return nil, fmt.Errorf("interfaceType cannot be nil")
	}
	if interfaceType.Kind() != reflect.Interface {
		return nil, fmt.Errorf("provided type %v is not an interface", interfaceType)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for serviceType, service := range c.services {
		serviceValue := reflect.ValueOf(service)
		if serviceValue.Type().Implements(interfaceType) {
			return service, nil
		}

		if reflect.PtrTo(serviceType).Implements(interfaceType) {
			if serviceValue.Kind() != reflect.Ptr {
				return reflect.New(serviceType).Interface(), nil
			}
			return service, nil
		}
	}

	return nil, fmt.Errorf("no service implements interface %v", interfaceType)
}

// GetService is a generic helper for resolving services with type safety
func GetService[T any](c *Container) (T, error) {
	var zero T
	serviceType := reflect.TypeOf(zero)

	service, err := c.Resolve(serviceType)
	if err != nil {
		return zero, err
	}

	if typedService, ok := service.(T); ok {
		return typedService, nil
	}

	return zero, fmt.Errorf("service is not of expected type %T", zero)
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetGatewayServer returns the realtime gateway server instance
func (c *Container) GetGatewayServer() *gateway.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GatewayServer
}

// HealthCheck performs health check on all registered services and infrastructure
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MongoDB != nil {
		if err := c.MongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}

	if c.AuthModule != nil {
		if err := c.AuthModule.Healthy(ctx); err != nil {
			return fmt.Errorf("auth module health check failed: %w", err)
		}
	}

	if c.GatewayConfig != nil && c.GatewayServer == nil {
		return fmt.Errorf("gateway configured but not initialized")
	}

	return nil
}

// Cleanup performs cleanup of registered services with proper shutdown order
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	// The gateway server has no background resources of its own beyond its
	// live connections, which terminate with the HTTP listener; nothing to
	// stop explicitly here.
	c.GatewayServer = nil

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
		c.RedisClient = nil
	}

	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop auth module: %w", err))
		}
		c.AuthModule = nil
	}

	for serviceType, service := range c.services {
		if cleaner, ok := service.(interface{ Cleanup(context.Context) error }); ok {
			if err := cleaner.Cleanup(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to cleanup service %v: %w", serviceType, err))
			}
		}
	}

	c.services = make(map[reflect.Type]interface{})
	c.factories = make(map[reflect.Type]func() (interface{}, error))

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}

	return nil
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	fmt.Println("Closing DI Container resources...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		fmt.Printf("Warning: cleanup errors occurred: %v\n", err)
		return err
	}

	fmt.Println("DI Container resources closed successfully.")
	return nil
}
