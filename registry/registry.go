package registry

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/typemat/typemat/decl"
	"github.com/typemat/typemat/logger"
	"github.com/typemat/typemat/mirror"
)

// State tracks the registry lifecycle. Mutation methods are guarded by it:
// libraries can only be added while populating, lookups only run once frozen.
type State uint8

const (
	StateEmpty State = iota
	StatePopulating
	StateServing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulating:
		return "populating"
	case StateServing:
		return "serving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// primitiveRootNames are warmed by both handle and name at freeze time
var primitiveRootNames = []string{
	decl.ObjectName, "String", "bool", "int", "double", "num",
	"List", "Map", "Set", "Iterable",
}

// MaterialRegistry is the top-level facade: it owns the frozen list of
// source libraries, the lookup caches with their amortized cleanup, the
// declaration generation pipeline and the subclass-discovery algorithm.
//
// The engine itself is single-threaded synchronous recursion; the coarse
// mutex exists because the optional periodic cleanup timer is the one
// concurrently-triggered entry point into cache-mutating code.
type MaterialRegistry struct {
	mu sync.Mutex

	cfg   *Config
	log   logger.Logger
	state State

	libraries []*SourceLibrary
	resolver  *LinkResolver
	builder   *DeclarationBuilder

	byQualified *lookupCache[*decl.ClassDeclaration]
	byHandle    *lookupCache[*decl.ClassDeclaration]
	byName      *lookupCache[*decl.ClassDeclaration]
	subRefs     *lookupCache[[]*ClassRef]
	annotated   *lookupCache[[]*decl.MethodDeclaration]

	// scopes caches the subclass search scope per package name
	scopes map[string][]*SourceLibrary

	lookups      uint64
	maxCacheSize int

	cleanupStop chan struct{}
}

// NewMaterialRegistry creates an empty registry. hints may be nil when no
// secondary static model is available.
func NewMaterialRegistry(cfg *Config, hints mirror.HintLookup, log logger.Logger) *MaterialRegistry {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.normalize()
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	log.SetTag("Registry")

	resolver := NewLinkResolver(logger.NewDefaultLogger())
	builder := NewDeclarationBuilder(resolver, hints, logger.NewDefaultLogger())

	r := &MaterialRegistry{
		cfg:          cfg,
		log:          log,
		state:        StateEmpty,
		resolver:     resolver,
		builder:      builder,
		byQualified:  newLookupCache[*decl.ClassDeclaration](),
		byHandle:     newLookupCache[*decl.ClassDeclaration](),
		byName:       newLookupCache[*decl.ClassDeclaration](),
		subRefs:      newLookupCache[[]*ClassRef](),
		annotated:    newLookupCache[[]*decl.MethodDeclaration](),
		scopes:       make(map[string][]*SourceLibrary),
		maxCacheSize: cfg.MaxCacheSize,
	}

	builder.SetSourceText(func(locator string) string {
		if lib := r.libraryByLocator(locator); lib != nil {
			return lib.Source()
		}
		return ""
	})
	builder.SetLinkLookup(func(name string) *decl.LinkDeclaration {
		return r.linkForName(name)
	})

	return r
}

// State returns the current lifecycle state
func (r *MaterialRegistry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Libraries returns the library list; order is only stable after Freeze
func (r *MaterialRegistry) Libraries() []*SourceLibrary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*SourceLibrary, len(r.libraries))
	copy(out, r.libraries)
	return out
}

// AddLibrary registers a compilation unit. Only valid before Freeze.
func (r *MaterialRegistry) AddLibrary(unit *mirror.CompilationUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state > StatePopulating {
		return ErrFrozen
	}
	r.state = StatePopulating

	lib := NewSourceLibrary(unit, logger.NewDefaultLogger())
	lib.Init()
	r.libraries = append(r.libraries, lib)
	return nil
}

// Freeze seals the library list: it assigns hierarchy ranks, stable-sorts so
// built-ins always trail, warms a fixed set of primitive root types by both
// handle and name, and eagerly materializes declarations for every library of
// the primary package. After Freeze the list is immutable and order-stable.
func (r *MaterialRegistry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state >= StateServing {
		return ErrFrozen
	}

	r.assignRanks()
	sort.SliceStable(r.libraries, func(i, j int) bool {
		return r.libraries[i].Rank() < r.libraries[j].Rank()
	})
	r.state = StateServing

	// warm-up: primitive/collection roots by handle and name
	for _, name := range primitiveRootNames {
		handle := decl.NewTypeHandle(decl.Qualify(decl.BuiltInLocator, name))
		if _, err := r.findByType(handle); err != nil {
			r.log.Debug(fmt.Sprintf("warm-up: no built-in declaration for handle %s", handle))
		}
		if _, err := r.findByName(name, ""); err != nil {
			r.log.Debug(fmt.Sprintf("warm-up: no built-in declaration for name %s", name))
		}
	}

	// amortize first-query latency for the primary package
	warmed := 0
	for _, lib := range r.libraries {
		if lib.Rank() > RankPrimary {
			continue
		}
		for _, ref := range lib.Refs() {
			if _, err := r.materialize(ref); err != nil {
				r.log.Debug(fmt.Sprintf("warm-up: %v", err))
				continue
			}
			warmed++
		}
	}
	r.log.Info(fmt.Sprintf("registry frozen: %d libraries, %d declarations warmed", len(r.libraries), warmed))

	if r.cfg.PeriodicCleanup > 0 {
		r.enablePeriodicCleanupLocked(time.Duration(r.cfg.PeriodicCleanup))
	}
	return nil
}

// assignRanks implements the hierarchy ranking pass: rank 0 for the
// application's own root package, 1 for the primary named package, 2 for its
// subpackages, 3 for other dependencies in discovery order, and the maximal
// rank for built-ins.
func (r *MaterialRegistry) assignRanks() {
	primary := ""
	for _, lib := range r.libraries {
		if lib.Package() != nil && lib.Package().Root {
			primary = lib.PackageName()
			break
		}
	}

	for _, lib := range r.libraries {
		switch {
		case lib.BuiltIn():
			lib.SetRank(RankBuiltIn)
		case lib.Package() != nil && lib.Package().Root:
			lib.SetRank(RankRoot)
		case primary != "" && lib.PackageName() == primary:
			lib.SetRank(RankPrimary)
		case primary != "" && strings.HasPrefix(lib.PackageName(), primary+"/"):
			lib.SetRank(RankSubPackage)
		default:
			lib.SetRank(RankDependency)
		}
	}
}

func (r *MaterialRegistry) libraryByLocator(locator string) *SourceLibrary {
	for _, lib := range r.libraries {
		if lib.Locator() == locator {
			return lib
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// lookup surface
// ----------------------------------------------------------------------------

// FindClassByName resolves a simple name to its declaration
func (r *MaterialRegistry) FindClassByName(name string) (*decl.ClassDeclaration, error) {
	return r.FindClassByNameIn(name, "")
}

// FindClassByNameIn resolves a simple name, restricting the first scan to the
// named package when a hint is given.
func (r *MaterialRegistry) FindClassByNameIn(name, packageHint string) (*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}
	return r.findByName(name, packageHint)
}

// FindClassByType resolves a type handle to its declaration
func (r *MaterialRegistry) FindClassByType(h decl.TypeHandle) (*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}
	return r.findByType(h)
}

// FindClassByQualifiedName resolves a qualified name to its declaration
func (r *MaterialRegistry) FindClassByQualifiedName(qualifiedName string) (*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}
	return r.findByQualifiedName(qualifiedName)
}

// ObtainClassDeclaration accepts a type handle, a simple or qualified name,
// or an entity mirror, and resolves whichever was given.
func (r *MaterialRegistry) ObtainClassDeclaration(subject any) (*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}

	switch s := subject.(type) {
	case decl.TypeHandle:
		return r.findByType(s)
	case *decl.ClassDeclaration:
		return s, nil
	case *mirror.EntityMirror:
		if s == nil {
			return nil, notFound("<nil entity>")
		}
		for _, lib := range r.libraries {
			if ref := lib.FindClassByName(s.Name); ref != nil && ref.Handle == s.Handle {
				return r.materialize(ref)
			}
		}
		return nil, notFound(s.Name)
	case string:
		if strings.Contains(s, ".") {
			if d, err := r.findByQualifiedName(s); err == nil {
				return d, nil
			}
		}
		return r.findByName(s, "")
	default:
		return nil, fmt.Errorf("%w: cannot materialize %T", ErrImmaterialType, subject)
	}
}

func (r *MaterialRegistry) findByName(name, packageHint string) (*decl.ClassDeclaration, error) {
	if name == "" {
		return nil, notFound(name)
	}

	key := packageHint + "|" + name
	r.countLookup()
	if d, ok := r.byName.Get(key); ok {
		return d, nil
	}

	// exact match within a package-restricted scope first
	if packageHint != "" {
		for _, lib := range r.libraries {
			if lib.PackageName() != packageHint {
				continue
			}
			if ref := lib.FindClassByName(name); ref != nil {
				d, err := r.materialize(ref)
				return r.cacheByName(key, d, err)
			}
		}
	}

	// global scan across all libraries, built-ins last by rank order
	for _, lib := range r.libraries {
		if ref := lib.FindClassByName(name); ref != nil {
			d, err := r.materialize(ref)
			return r.cacheByName(key, d, err)
		}
	}

	if decl.IsSentinelName(name) {
		return r.cacheByName(key, r.sentinelDeclaration(name), nil)
	}

	// generic-type-string detection as the last strategy
	if parsed := ParseGenericType(name); parsed.IsGeneric() {
		if d, err := r.materializeGeneric(parsed, packageHint); err == nil {
			return r.cacheByName(key, d, nil)
		}
	}

	return nil, notFound(name)
}

func (r *MaterialRegistry) findByType(h decl.TypeHandle) (*decl.ClassDeclaration, error) {
	if h.IsZero() {
		return nil, notFound("<zero handle>")
	}
	if strings.HasPrefix(h.ID, mirror.MetaHandlePrefix) {
		return nil, fmt.Errorf("%w: %s", ErrImmaterialType, h.ID)
	}

	// type-variable handles are synthetic and never cache keys
	if h.Variable {
		return r.findByName(h.ID, "")
	}

	r.countLookup()
	if d, ok := r.byHandle.Get(h.ID); ok {
		return d, nil
	}

	for _, lib := range r.libraries {
		if ref := lib.FindClassByHandle(h); ref != nil {
			return r.materialize(ref)
		}
	}

	simple := decl.SimpleName(h.ID)
	if decl.IsSentinelName(simple) {
		d := r.sentinelDeclaration(simple)
		r.byHandle.Put(h.ID, d)
		return d, nil
	}

	if parsed := ParseGenericType(simple); parsed.IsGeneric() {
		if d, err := r.materializeGeneric(parsed, ""); err == nil {
			r.byHandle.Put(h.ID, d)
			return d, nil
		}
	}

	return nil, notFound(h.ID)
}

func (r *MaterialRegistry) findByQualifiedName(qualifiedName string) (*decl.ClassDeclaration, error) {
	if qualifiedName == "" {
		return nil, notFound(qualifiedName)
	}
	r.countLookup()
	if d, ok := r.byQualified.Get(qualifiedName); ok {
		return d, nil
	}

	for _, lib := range r.libraries {
		if ref := lib.FindClass(qualifiedName); ref != nil {
			return r.materialize(ref)
		}
	}

	simple := decl.SimpleName(qualifiedName)
	if decl.IsSentinelName(simple) {
		d := r.sentinelDeclaration(simple)
		r.byQualified.Put(qualifiedName, d)
		return d, nil
	}

	if parsed := ParseGenericType(simple); parsed.IsGeneric() {
		if d, err := r.materializeGeneric(parsed, ""); err == nil {
			r.byQualified.Put(qualifiedName, d)
			return d, nil
		}
	}

	return nil, notFound(qualifiedName)
}

func (r *MaterialRegistry) cacheByName(key string, d *decl.ClassDeclaration, err error) (*decl.ClassDeclaration, error) {
	if err != nil {
		return nil, err
	}
	r.byName.Put(key, d)
	return d, nil
}

// materialize produces (or fetches) the full declaration for a class
// reference. The qualified-name and type-handle caches must never disagree:
// whichever is populated first is authoritative, so both are checked before
// generating afresh, and both are written after.
func (r *MaterialRegistry) materialize(ref *ClassRef) (*decl.ClassDeclaration, error) {
	if d, ok := r.byQualified.Get(ref.QualifiedName); ok {
		return d, nil
	}
	if ref.Handle.Cacheable() {
		if d, ok := r.byHandle.Get(ref.Handle.ID); ok {
			r.byQualified.Put(ref.QualifiedName, d)
			return d, nil
		}
	}

	var d *decl.ClassDeclaration
	if ref.Entity() == nil {
		// external leaf reference: a minimal declaration without members
		d = &decl.ClassDeclaration{
			Name:           ref.Name,
			QualifiedName:  ref.QualifiedName,
			Handle:         ref.Handle,
			BaseHandle:     ref.Handle,
			LibraryLocator: ref.Library,
			Shape:          decl.ShapeClass,
			Public:         !decl.IsInternalName(ref.Name),
			Synthetic:      decl.IsSyntheticName(ref.Name),
		}
	} else {
		builtIn := false
		if lib := r.libraryByLocator(ref.Library); lib != nil {
			builtIn = lib.BuiltIn()
		}
		var err error
		d, err = r.builder.GenerateClass(ref.Entity(), ref.Library, ref.Entity().Location, builtIn)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize %s: %w", ref.QualifiedName, err)
		}
	}

	r.byQualified.Put(ref.QualifiedName, d)
	if d.Handle.Cacheable() {
		r.byHandle.Put(d.Handle.ID, d)
	}
	return d, nil
}

// materializeGeneric builds a concrete instantiation declaration from a
// parsed generic type string by resolving its base and each argument.
func (r *MaterialRegistry) materializeGeneric(parsed *GenericParseResult, packageHint string) (*decl.ClassDeclaration, error) {
	base, err := r.findByName(parsed.Base, packageHint)
	if err != nil {
		return nil, err
	}

	next := *base
	next.Name = parsed.TypeString
	next.QualifiedName = decl.Qualify(base.LibraryLocator, parsed.TypeString)
	next.Handle = decl.NewTypeHandle(next.QualifiedName)
	next.BaseHandle = base.Handle
	next.TypeArguments = nil
	next.Unresolved = false
	for _, arg := range parsed.Args {
		link := r.linkForName(arg.TypeString)
		if link == nil {
			link = decl.ObjectLink()
		}
		if link.Handle.Variable {
			next.Unresolved = true
		}
		next.TypeArguments = append(next.TypeArguments, link)
	}

	r.byQualified.Put(next.QualifiedName, &next)
	r.byHandle.Put(next.Handle.ID, &next)
	return &next, nil
}

// linkForName resolves a type name to a link declaration, degrading to the
// sentinels for the hard-coded names and nil when nothing matches.
func (r *MaterialRegistry) linkForName(name string) *decl.LinkDeclaration {
	name = strings.TrimSpace(name)
	switch name {
	case decl.DynamicName:
		return decl.DynamicLink()
	case decl.VoidName:
		return decl.VoidLink()
	case decl.ObjectName:
		return decl.ObjectLink()
	}
	if d, err := r.findByName(name, ""); err == nil {
		return d.SelfLink()
	}
	return nil
}

func (r *MaterialRegistry) sentinelDeclaration(name string) *decl.ClassDeclaration {
	link := decl.ObjectLink()
	switch name {
	case decl.DynamicName:
		link = decl.DynamicLink()
	case decl.VoidName:
		link = decl.VoidLink()
	}
	return &decl.ClassDeclaration{
		Name:           link.Name,
		QualifiedName:  link.QualifiedName,
		Handle:         link.Handle,
		BaseHandle:     link.BaseHandle,
		LibraryLocator: decl.BuiltInLocator,
		BuiltIn:        true,
		Shape:          decl.ShapeClass,
		Public:         true,
	}
}

// ----------------------------------------------------------------------------
// enumeration APIs
// ----------------------------------------------------------------------------

// AllClasses returns a finite, single-pass sequence of every materializable
// declaration in hierarchy order. A second enumeration re-runs the
// cache-checked computation rather than replaying the first. Items that fail
// to materialize are skipped, never abort the enumeration.
func (r *MaterialRegistry) AllClasses() iter.Seq[*decl.ClassDeclaration] {
	refs := r.snapshotRefs()
	return func(yield func(*decl.ClassDeclaration) bool) {
		for _, ref := range refs {
			d, err := r.materializeRef(ref)
			if err != nil {
				r.log.Debug(fmt.Sprintf("enumeration: %v", err))
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// AllMethods yields every method of every materializable declaration
func (r *MaterialRegistry) AllMethods() iter.Seq[*decl.MethodDeclaration] {
	return func(yield func(*decl.MethodDeclaration) bool) {
		for d := range r.AllClasses() {
			for _, m := range d.Methods {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// UnresolvedClasses yields generic declarations that carry no concrete
// binding and therefore cannot be instantiated.
func (r *MaterialRegistry) UnresolvedClasses() iter.Seq[*decl.ClassDeclaration] {
	return func(yield func(*decl.ClassDeclaration) bool) {
		for d := range r.AllClasses() {
			if !d.Unresolved {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// ResolveConcrete returns the concrete handle for a declaration, failing
// with a distinct unresolved-generic signal for unbound generics.
func (r *MaterialRegistry) ResolveConcrete(qualifiedName string) (decl.TypeHandle, error) {
	d, err := r.FindClassByQualifiedName(qualifiedName)
	if err != nil {
		return decl.TypeHandle{}, err
	}
	if d.Unresolved {
		return decl.TypeHandle{}, fmt.Errorf("%w: %s", ErrUnresolvedGeneric, qualifiedName)
	}
	return d.Handle, nil
}

// CollectAnnotatedMethods returns every method carrying the marker, walking
// the annotated-member indexes and materializing only the classes that have
// matches. Results are cached per marker.
func (r *MaterialRegistry) CollectAnnotatedMethods(marker string) ([]*decl.MethodDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}

	r.countLookup()
	if cached, ok := r.annotated.Get(marker); ok {
		return cached, nil
	}

	var out []*decl.MethodDeclaration
	for _, lib := range r.libraries {
		for _, ref := range lib.Refs() {
			names := ref.AnnotatedMembers[marker]
			if len(names) == 0 {
				continue
			}
			d, err := r.materialize(ref)
			if err != nil {
				r.log.Debug(fmt.Sprintf("annotated scan: %v", err))
				continue
			}
			for _, name := range names {
				if m := d.FindMethod(name); m != nil && m.HasAnnotation(marker) {
					out = append(out, m)
				}
			}
		}
	}

	r.annotated.Put(marker, out)
	return out, nil
}

func (r *MaterialRegistry) snapshotRefs() []*ClassRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []*ClassRef
	for _, lib := range r.libraries {
		refs = append(refs, lib.Refs()...)
	}
	return refs
}

func (r *MaterialRegistry) materializeRef(ref *ClassRef) (*decl.ClassDeclaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateServing {
		return nil, ErrNotFrozen
	}
	return r.materialize(ref)
}

// ----------------------------------------------------------------------------
// cleanup
// ----------------------------------------------------------------------------

// countLookup increments the monotonic lookup counter and, every N-th
// lookup, runs the cleanup check. Eviction cost amortizes to O(1) per lookup.
func (r *MaterialRegistry) countLookup() {
	r.lookups++
	if r.lookups%uint64(r.cfg.CleanupCheckEvery) == 0 {
		r.cleanupLocked()
	}
}

// Cleanup runs one cleanup pass: any cache past its threshold is trimmed and
// the in-flight cycle-guard set is cleared.
func (r *MaterialRegistry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()
}

func (r *MaterialRegistry) cleanupLocked() {
	threshold := int(float64(r.maxCacheSize) * cleanupThresholdFactor)
	trimmed := 0
	trimmed += trimIfOver(r.byQualified, threshold)
	trimmed += trimIfOver(r.byHandle, threshold)
	trimmed += trimIfOver(r.byName, threshold)
	trimmed += trimIfOver(r.subRefs, threshold)
	trimmed += trimIfOver(r.annotated, threshold)
	if trimmed > 0 {
		r.log.Debug(fmt.Sprintf("cleanup trimmed %d cache entries", trimmed))
	}

	// a stuck in-flight entry would deadlock future resolutions
	r.resolver.ClearInFlight()
}

func trimIfOver[V any](c *lookupCache[V], threshold int) int {
	if c.Len() <= threshold {
		return 0
	}
	return c.TrimOldest(cleanupTrimFraction)
}

// CacheSizes reports the current entry count of every lookup cache
func (r *MaterialRegistry) CacheSizes() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"qualified": r.byQualified.Len(),
		"handle":    r.byHandle.Len(),
		"name":      r.byName.Len(),
		"subclass":  r.subRefs.Len(),
		"annotated": r.annotated.Len(),
	}
}

// ProvideMaxCacheSize adjusts the per-cache capacity
func (r *MaterialRegistry) ProvideMaxCacheSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.maxCacheSize = n
	}
}

// EnablePeriodicCleanup starts a background timer running Cleanup. It is the
// only concurrently-triggered entry point into the cache-mutating code; the
// registry mutex serializes it against lookups.
func (r *MaterialRegistry) EnablePeriodicCleanup(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enablePeriodicCleanupLocked(interval)
}

func (r *MaterialRegistry) enablePeriodicCleanupLocked(interval time.Duration) {
	if r.cleanupStop != nil || interval <= 0 {
		return
	}
	stop := make(chan struct{})
	r.cleanupStop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

// DisablePeriodicCleanup stops the background timer if one is running
func (r *MaterialRegistry) DisablePeriodicCleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanupStop != nil {
		close(r.cleanupStop)
		r.cleanupStop = nil
	}
}

// Close stops background work and marks the registry closed
func (r *MaterialRegistry) Close() {
	r.DisablePeriodicCleanup()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateClosed
}
