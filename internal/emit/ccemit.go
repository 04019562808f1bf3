package emit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"github.com/treekit-build/treekit/internal/msg"
	"golang.org/x/sync/errgroup"
)

// buildState records what went into the last successful build so unchanged
// inputs can be skipped on the next run.
type buildState struct {
	BuildID string            `json:"build_id"`          // uuid of the run that produced the artifact
	Sources map[string]string `json:"sources,omitempty"` // source file -> sha256
	Cflags  []string          `json:"cflags,omitempty"`
	Ldflags []string          `json:"ldflags,omitempty"`
}

type compileJob struct {
	src    string
	obj    string
	cflags []string
	cc     string
}

// CCEmitter compiles the plan directly with the discovered C compiler:
// parallel compiles, then ar for a static library or cc -shared for a
// dynamic one, then header installation.
type CCEmitter struct {
	cc         string
	lib        Library
	buildDir   string
	stateFile  string
	buildState map[string]*buildState
	jobs       int
}

func NewCCEmitter() *CCEmitter {
	return &CCEmitter{
		buildState: make(map[string]*buildState),
		jobs:       runtime.NumCPU(),
	}
}

func (g *CCEmitter) SetCompiler(cc string) { g.cc = cc }

func (g *CCEmitter) AddLibrary(lib Library) { g.lib = lib }

func (g *CCEmitter) Generate() string {
	return "" // no build file needed, state is written during Invoke
}

func (g *CCEmitter) BuildFile() string { return "treekit_build_state.json" }

// Invoke performs the actual build.
func (g *CCEmitter) Invoke(buildDir string) error {
	if g.cc == "" {
		return fmt.Errorf("no C compiler found (set CC or install one)")
	}

	g.buildDir = buildDir
	g.stateFile = filepath.Join(buildDir, g.BuildFile())

	if err := g.loadBuildState(); err != nil {
		msg.Warn("failed to load build state: %v", err)
	}

	if err := g.buildLibrary(); err != nil {
		return fmt.Errorf("failed to build %s: %w", g.lib.Name, err)
	}

	if err := g.installHeaders(); err != nil {
		return err
	}

	if err := g.saveBuildState(); err != nil {
		msg.Warn("failed to save build state: %v", err)
	}

	return nil
}

func (g *CCEmitter) loadBuildState() error {
	f, err := os.Open(g.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no previous state, that's fine
		}
		return err
	}
	defer f.Close()
	return json.NewDecoder(bufio.NewReader(f)).Decode(&g.buildState)
}

func (g *CCEmitter) saveBuildState() error {
	data, err := json.MarshalIndent(g.buildState, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.stateFile, data, 0644)
}

// fileHash computes the SHA256 hash of a file
func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// needsRebuild checks whether the library's inputs changed since the state
// file was written.
func (g *CCEmitter) needsRebuild() (bool, error) {
	state, exists := g.buildState[g.lib.Name]
	if !exists {
		return true, nil // no build state
	}

	if !slices.Equal(state.Cflags, g.lib.Cflags) || !slices.Equal(state.Ldflags, g.lib.Ldflags) {
		return true, nil
	}

	if _, err := os.Stat(filepath.Join(g.buildDir, g.lib.Name)); os.IsNotExist(err) {
		return true, nil
	}

	for _, src := range g.lib.Sources {
		hash, err := fileHash(src)
		if err != nil {
			return true, err
		}
		if prevHash, exists := state.Sources[src]; !exists || prevHash != hash {
			return true, nil
		}
	}

	return false, nil
}

func (g *CCEmitter) objPath(src string) string {
	rel, err := filepath.Rel(g.lib.Basedir, src)
	if err != nil {
		rel = filepath.Base(src)
	}
	return filepath.Join(g.buildDir, "TreekitFiles", g.lib.Name+".dir", rel+".obj")
}

func (g *CCEmitter) buildLibrary() error {
	needsRebuild, err := g.needsRebuild()
	if err != nil {
		return err
	}
	if !needsRebuild {
		return nil
	}

	jobs := make([]compileJob, len(g.lib.Sources))
	objects := make([]string, len(g.lib.Sources))
	for i, src := range g.lib.Sources {
		obj := g.objPath(src)
		jobs[i] = compileJob{src: src, obj: obj, cflags: g.lib.Cflags, cc: g.cc}
		objects[i] = obj
	}

	if err := g.runCompileJobs(jobs); err != nil {
		return err
	}

	if err := g.link(objects); err != nil {
		return err
	}

	return g.updateBuildState()
}

// runCompileJobs runs compilation jobs in parallel
func (g *CCEmitter) runCompileJobs(jobs []compileJob) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(g.jobs)

	for _, job := range jobs {
		eg.Go(func() error {
			return runCompileJob(job)
		})
	}

	return eg.Wait()
}

func runCompileJob(job compileJob) error {
	if err := os.MkdirAll(filepath.Dir(job.obj), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	args := make([]string, 0, len(job.cflags)+4)
	args = append(args, job.cflags...)
	args = append(args, "-c", job.src, "-o", job.obj)

	cmd := exec.Command(job.cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Printf("CC %s\n", job.obj)
	return cmd.Run()
}

func (g *CCEmitter) link(objects []string) error {
	out := filepath.Join(g.buildDir, g.lib.Name)

	if g.lib.Dynamic {
		args := []string{"-shared", "-o", out}
		args = append(args, objects...)
		args = append(args, g.lib.Ldflags...)

		cmd := exec.Command(g.cc, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		fmt.Printf("LINK %s\n", out)
		return cmd.Run()
	}

	args := []string{"rcs", out}
	args = append(args, objects...)

	cmd := exec.Command("ar", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Printf("AR %s\n", out)
	return cmd.Run()
}

// installHeaders copies the plan's public headers next to the artifact so
// consumers get a self-contained include/ + lib layout.
func (g *CCEmitter) installHeaders() error {
	if len(g.lib.Headers) == 0 {
		return nil
	}

	includeDir := filepath.Join(g.buildDir, "include")
	if err := os.MkdirAll(includeDir, 0755); err != nil {
		return err
	}

	for _, hdr := range g.lib.Headers {
		data, err := os.ReadFile(hdr)
		if err != nil {
			return fmt.Errorf("failed to read header %s: %w", hdr, err)
		}
		dst := filepath.Join(includeDir, filepath.Base(hdr))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to install header %s: %w", hdr, err)
		}
	}

	return nil
}

func (g *CCEmitter) updateBuildState() error {
	state := &buildState{
		BuildID: uuid.NewString(),
		Sources: make(map[string]string),
		Cflags:  g.lib.Cflags,
		Ldflags: g.lib.Ldflags,
	}

	for _, src := range g.lib.Sources {
		hash, err := fileHash(src)
		if err != nil {
			return fmt.Errorf("failed to hash source file %s: %w", src, err)
		}
		state.Sources[src] = hash
	}

	g.buildState[g.lib.Name] = state
	return nil
}
