// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/mlnoga/hpxgrid/internal/config"
	"github.com/mlnoga/hpxgrid/internal/hpx"
	"github.com/mlnoga/hpxgrid/internal/logging"
	"github.com/mlnoga/hpxgrid/internal/ops"
	"github.com/mlnoga/hpxgrid/internal/regrid"
	"github.com/mlnoga/hpxgrid/internal/rest"
	"github.com/mlnoga/hpxgrid/internal/sink"
	"github.com/mlnoga/hpxgrid/internal/stats"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var job = flag.String("job", "", "read job settings from YAML `file`. Flags given explicitly override it")
var out = flag.String("out", "out.csv", "save records to `file`, - for stdout, empty for none")
var format = flag.String("format", "csv", "record format, one of csv or jsonl")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var preview = flag.String("preview", "", "save HPX grid with given filename pattern, e.g. `sky%04d.jpg`. Suffix .fits, .jpg or .tif")

var nside = flag.Int("nside", 64, "HPX grid resolution. The grid has 8*nside x 4*nside+1 cells of 45/nside degrees")
var direct = flag.Bool("direct", true, "take images already in HPX projection as they are, without interpolation")
var regridF = flag.String("regrid", "", "block-downsample the grid by the given factor per axis, e.g. `4` or `4,2`")
var agg = flag.String("agg", "sum", "aggregator for regridding, one of "+strings.Join(regrid.AggregatorNames(), ", "))

var gamma = flag.Float64("gamma", 1, "preview gamma")
var previewMin = flag.Float64("min", 0, "preview black point, min=max selects the data range")
var previewMax = flag.Float64("max", 0, "preview white point, min=max selects the data range")

var threads = flag.Int("threads", 0, "number of images processed in parallel, 0=all cores")

var addr = flag.String("addr", ":8080", "listen address for serve")
var chroot = flag.String("chroot", "", "chroot to given `directory` before serving")
var setuid = flag.Int("setuid", -1, "set user id before serving, -1=no change")

func main() {
	logWriter := logging.Log
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `hpxgrid Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (convert|regrid|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  convert Resample input images onto the HPX grid and save time-tagged records
  regrid  Block-downsample record files written by convert, per time
  serve   Serve the HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" && *out != "-" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := logging.LogAlsoToFile(*log); err != nil {
			logging.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}
	defer logging.LogClose()

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logging.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logging.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "convert":
		err = cmdConvert(args[1:], logWriter)

	case "regrid":
		err = cmdRegrid(args[1:], logWriter)

	case "serve":
		if err = rest.MakeSandbox(logWriter, *chroot, *setuid); err == nil {
			err = rest.NewServer(logWriter, *threads).Serve(*addr)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			logging.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			logging.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		logging.LogFatalf("Error: %s\n", err.Error())
	}
}

// Parses block factors like "4" or "4,2"
func parseFactors(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var res []int
	for _, f := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid regrid factor '%s': %w", f, err)
		}
		res = append(res, d)
	}
	return res, nil
}

// Assembles the job from the optional job file and the flags given explicitly on the command line
func makeJob(files []string) (config.Job, error) {
	j := config.NewJob()
	if *job != "" {
		var err error
		if j, err = config.LoadJob(*job); err != nil {
			return j, err
		}
	}
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	fromJob := *job != ""
	set := func(name string) bool { return !fromJob || explicit[name] }

	if len(files) > 0 {
		j.Files = files
	}
	if set("nside") {
		j.Nside = *nside
	}
	if set("direct") {
		j.Direct = *direct
	}
	if set("threads") {
		j.Threads = *threads
	}
	if set("out") {
		j.Output.File = *out
	}
	if set("format") {
		j.Output.Format = *format
	}
	if set("regrid") {
		factors, err := parseFactors(*regridF)
		if err != nil {
			return j, err
		}
		j.Regrid.Factors = factors
	}
	if set("agg") {
		j.Regrid.Aggregator = *agg
	}
	if set("preview") {
		j.Preview.File = *preview
	}
	if set("min") {
		j.Preview.Min = *previewMin
	}
	if set("max") {
		j.Preview.Max = *previewMax
	}
	if set("gamma") {
		j.Preview.Gamma = *gamma
	}
	return j, j.Finalize()
}

func cmdConvert(files []string, logWriter io.Writer) error {
	j, err := makeJob(files)
	if err != nil {
		return err
	}
	if len(j.Files) == 0 {
		return fmt.Errorf("no input files given")
	}

	c := ops.NewContext(logWriter, j.Threads)
	if j.Output.File != "" {
		if c.Sink, err = sink.Open(j.Output.File, j.Output.Format); err != nil {
			return err
		}
	}

	seq := j.Sequence()
	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Converting with these settings:\n%s\n", string(m))
	fmt.Fprintf(logWriter, "Using %d threads and %d MiB of memory, HPX grid %dx%d\n",
		c.MaxThreads, c.MemoryMB, 8*j.Nside, 4*j.Nside+1)

	promises, err := seq.MakePromises(nil, c)
	if err == nil {
		_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	}
	if c.Sink != nil {
		if cerr := c.Sink.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reads CSV record files, regrids each time slice and writes the result to the output
func cmdRegrid(files []string, logWriter io.Writer) error {
	factors, err := parseFactors(*regridF)
	if err != nil {
		return err
	}
	if len(factors) == 0 {
		return fmt.Errorf("no regrid factors given")
	}
	aggregator, err := regrid.AggregatorByName(*agg)
	if err != nil {
		return err
	}
	grid, err := hpx.NewIndexGrid(*nside)
	if err != nil {
		return err
	}

	coll := sink.NewCollector()
	for _, fileName := range files {
		f, err := os.Open(fileName)
		if err != nil {
			return err
		}
		recs, err := sink.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}
		fmt.Fprintf(logWriter, "Read %d records from %s\n", len(recs), fileName)
		coll.Put(recs)
	}

	s, err := sink.Open(*out, *format)
	if err != nil {
		return err
	}
	for _, t := range coll.Times() {
		g, err := coll.Slice(t, grid.Nx, grid.Ny)
		if err != nil {
			s.Close()
			return err
		}
		res, err := regrid.RegridSparse(g, factors, aggregator)
		if err != nil {
			s.Close()
			return err
		}
		recs := res.Records(t)
		if err := s.Put(recs); err != nil {
			s.Close()
			return err
		}
		fmt.Fprintf(logWriter, "Time %d: %d cells of %dx%d grid to %d cells of %dx%d, %v\n",
			t, g.Len(), g.Nx, g.Ny, res.Len(), res.Nx, res.Ny, stats.SummarizeRecords(recs))
	}
	return s.Close()
}
