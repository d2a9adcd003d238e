package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/logging"
	"github.com/ahrav/go-concord/internal/ports"
)

// DefaultGraphCacheSize is the number of compiled graphs a loader keeps.
const DefaultGraphCacheSize = 64

// GraphLoader parses, validates and compiles graph YAML into executable
// graphs. Compiled graphs are kept in an LRU cache keyed by the SHA-256 of
// the normalized configuration; concurrent loads of the same configuration
// compile once.
type GraphLoader struct {
	validator    *validator.Validate
	unitRegistry ports.UnitRegistry
	logger       *zap.Logger
	cacheSize    int
	// cache holds compiled graphs by config hash. Cached graphs are shared
	// and MUST NOT be mutated.
	cache *lru.Cache[string, *Graph]
	sf    singleflight.Group
}

// LoaderOption configures a GraphLoader.
type LoaderOption func(*GraphLoader)

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(gl *GraphLoader) { gl.logger = logging.OrNop(l) }
}

// WithCacheSize bounds the number of cached graphs. Values below 1 are
// ignored.
func WithCacheSize(n int) LoaderOption {
	return func(gl *GraphLoader) {
		if n > 0 {
			gl.cacheSize = n
		}
	}
}

// NewGraphLoader creates a loader that builds units through unitRegistry.
func NewGraphLoader(unitRegistry ports.UnitRegistry, opts ...LoaderOption) (*GraphLoader, error) {
	if unitRegistry == nil {
		return nil, fmt.Errorf("unit registry cannot be nil")
	}

	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	gl := &GraphLoader{
		validator:    v,
		unitRegistry: unitRegistry,
		logger:       zap.NewNop(),
		cacheSize:    DefaultGraphCacheSize,
	}
	for _, opt := range opts {
		opt(gl)
	}

	cache, err := lru.New[string, *Graph](gl.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	gl.cache = cache
	return gl, nil
}

// load parses data, then compiles it or returns the cached graph.
func (gl *GraphLoader) load(ctx context.Context, data []byte) (*Graph, error) {
	config, err := gl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Hash the normalized config, not the raw bytes, so formatting changes
	// hit the cache.
	hash, err := gl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, shared := gl.sf.Do(hash, func() (any, error) {
		if graph, ok := gl.getCachedGraph(hash); ok {
			gl.logger.Debug("graph cache hit", zap.String("graph", graph.Name()), zap.String("hash", hash[:12]))
			return graph, nil
		}

		if err := gl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		graph, err := gl.buildGraph(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		gl.cacheGraph(hash, graph)
		gl.logger.Info("graph compiled",
			zap.String("graph", graph.Name()),
			zap.Int("units", len(config.Units)),
			zap.String("hash", hash[:12]),
		)
		return graph, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		gl.logger.Debug("graph load shared with concurrent caller", zap.String("hash", hash[:12]))
	}

	return v.(*Graph), nil
}

// LoadFromFile loads a graph from a YAML file. The returned graph may be a
// cached instance and MUST NOT be mutated.
func (gl *GraphLoader) LoadFromFile(ctx context.Context, path string) (*Graph, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, ports.NewConfigError(cleanPath, err)
	}

	graph, err := gl.load(ctx, data)
	if err != nil {
		return nil, ports.NewConfigError(cleanPath, err)
	}
	return graph, nil
}

// LoadFromReader loads a graph from r. The returned graph may be a cached
// instance and MUST NOT be mutated.
func (gl *GraphLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return gl.load(ctx, data)
}

// parseYAML decodes strictly: unknown fields are errors.
func (gl *GraphLoader) parseYAML(data []byte) (*GraphConfig, error) {
	var config GraphConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

func (gl *GraphLoader) validateConfig(config *GraphConfig) error {
	if err := gl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := gl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics enforces the rules struct tags cannot express: IDs are
// unique across units, pipelines and layers; every referenced unit exists
// and is placed at most once; edges connect top-level nodes; unit types are
// registered and their parameters decode.
func (gl *GraphLoader) validateSemantics(config *GraphConfig) error {
	allNodeIDs := make(map[string]string) // ID -> node kind, for error messages.
	unitIDs := make(map[string]struct{})
	supported := gl.unitRegistry.GetSupportedTypes()

	for _, unit := range config.Units {
		if kind, exists := allNodeIDs[unit.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", unit.ID, kind)
		}
		allNodeIDs[unit.ID] = "unit"
		unitIDs[unit.ID] = struct{}{}

		if !slices.Contains(supported, unit.Type) {
			return fmt.Errorf("unit %s has unsupported type %q (supported: %v)", unit.ID, unit.Type, supported)
		}
		if err := ValidateUnitParameters(unit.Type, unit.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", unit.ID, err)
		}
	}

	placed := make(map[string]string) // unit ID -> container ID.
	place := func(container string, ids []string) error {
		for _, unitID := range ids {
			if _, exists := unitIDs[unitID]; !exists {
				return fmt.Errorf("%s references non-existent unit: %s", container, unitID)
			}
			if prev, dup := placed[unitID]; dup {
				return fmt.Errorf("unit %s is used by both %s and %s", unitID, prev, container)
			}
			placed[unitID] = container
		}
		return nil
	}

	for _, pipeline := range config.Graph.Pipelines {
		if kind, exists := allNodeIDs[pipeline.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", pipeline.ID, kind)
		}
		allNodeIDs[pipeline.ID] = "pipeline"
		if err := place("pipeline "+pipeline.ID, pipeline.Units); err != nil {
			return err
		}
	}

	for _, layer := range config.Graph.Layers {
		if kind, exists := allNodeIDs[layer.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", layer.ID, kind)
		}
		allNodeIDs[layer.ID] = "layer"
		if err := place("layer "+layer.ID, layer.Units); err != nil {
			return err
		}
	}

	for _, edge := range config.Graph.Edges {
		for _, end := range []string{edge.From, edge.To} {
			if _, exists := allNodeIDs[end]; !exists {
				return fmt.Errorf("edge %s->%s references non-existent node: %s", edge.From, edge.To, end)
			}
			if container, inside := placed[end]; inside {
				return fmt.Errorf("edge %s->%s references unit %s inside %s", edge.From, edge.To, end, container)
			}
		}
	}

	return nil
}

// buildGraph instantiates units through the registry and assembles
// pipelines, layers, standalone units and edges. Nodes are added in
// declaration order: pipelines, layers, then standalone units.
func (gl *GraphLoader) buildGraph(ctx context.Context, config *GraphConfig) (*Graph, error) {
	graph := NewGraph(config.Metadata.Name)

	adapters := make(map[string]*UnitAdapter, len(config.Units))
	for _, unitConfig := range config.Units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := gl.createUnit(unitConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", unitConfig.ID, err)
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s is invalid: %w", unitConfig.ID, err)
		}
		timeout := time.Duration(unitConfig.Timeout.ExecutionTimeout) * time.Second
		adapters[unitConfig.ID] = NewUnitAdapter(unit, unitConfig.ID, WithTimeout(timeout))
	}

	placedUnits := make(map[string]struct{})

	for _, pipelineConfig := range config.Graph.Pipelines {
		pipeline := NewPipeline(pipelineConfig.ID)
		for _, unitID := range pipelineConfig.Units {
			if err := pipeline.Add(adapters[unitID]); err != nil {
				return nil, fmt.Errorf("failed to add unit to pipeline: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}
		if err := graph.AddNode(pipeline); err != nil {
			return nil, fmt.Errorf("failed to add pipeline to graph: %w", err)
		}
	}

	for _, layerConfig := range config.Graph.Layers {
		layer := NewLayer(layerConfig.ID)
		for _, unitID := range layerConfig.Units {
			if err := layer.Add(adapters[unitID]); err != nil {
				return nil, fmt.Errorf("failed to add unit to layer: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}
		if err := graph.AddNode(layer); err != nil {
			return nil, fmt.Errorf("failed to add layer to graph: %w", err)
		}
	}

	for _, unitConfig := range config.Units {
		if _, isPlaced := placedUnits[unitConfig.ID]; isPlaced {
			continue
		}
		if err := graph.AddNode(adapters[unitConfig.ID]); err != nil {
			return nil, fmt.Errorf("failed to add unit to graph: %w", err)
		}
	}

	for _, edge := range config.Graph.Edges {
		if err := graph.AddEdge(edge.From, edge.To); err != nil {
			return nil, fmt.Errorf("failed to add edge: %w", err)
		}
	}

	return graph, nil
}

// createUnit decodes the unit's parameters and hands them to the registry.
func (gl *GraphLoader) createUnit(config UnitConfig) (ports.Unit, error) {
	params, err := decodeParameters(config.Parameters)
	if err != nil {
		return nil, err
	}

	unit, err := gl.unitRegistry.CreateUnit(config.Type, config.ID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	return unit, nil
}

// calculateConfigHash hashes the re-encoded config so that formatting and
// key order do not affect the result.
func (gl *GraphLoader) calculateConfigHash(config *GraphConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (gl *GraphLoader) getCachedGraph(hash string) (*Graph, bool) {
	return gl.cache.Get(hash)
}

func (gl *GraphLoader) cacheGraph(hash string, graph *Graph) {
	if evicted := gl.cache.Add(hash, graph); evicted {
		gl.logger.Debug("graph cache full, evicted least recently used entry")
	}
}

// ClearCache drops every cached graph.
func (gl *GraphLoader) ClearCache() {
	gl.cache.Purge()
}
