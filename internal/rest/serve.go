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



package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/hpxgrid/internal/ops"
	"github.com/mlnoga/hpxgrid/internal/regrid"
	"github.com/mlnoga/hpxgrid/internal/sink"
	"github.com/mlnoga/hpxgrid/internal/sparse"
	"github.com/mlnoga/hpxgrid/internal/stats"
)

// HTTP front end running operator sequences and regridding record sets
type Server struct {
	Log        io.Writer // Server-side copy of each request's log
	MaxThreads int
	Sandboxed  bool // Restrict file access to relative paths below the working directory
}

func NewServer(log io.Writer, maxThreads int) *Server {
	return &Server{Log: log, MaxThreads: maxThreads, Sandboxed: true}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/convert", s.postConvert)
			v1.POST("/regrid", s.postRegrid)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func (s *Server) Serve(addr string) error {
	return s.Router().Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Serializes writes from concurrently running operators
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type postConvertArgs struct {
	Sequence *ops.OpSequence `json:"sequence" binding:"required"`
}

type frameSummary struct {
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
	Nside    int    `json:"nside"`
	Nx       int    `json:"nx"`
	Ny       int    `json:"ny"`
	Time     int64  `json:"time"`
	Cells    int    `json:"cells"`
}

type postConvertResult struct {
	Frames  []frameSummary        `json:"frames"`
	Records []sparse.SparseRecord `json:"records"`
	Stats   string                `json:"stats,omitempty"`
	Log     string                `json:"log"`
	Error   string                `json:"error,omitempty"`
}

// Runs a posted operator sequence, collecting emitted records in memory
func (s *Server) postConvert(c *gin.Context) {
	var args postConvertArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var logBuf bytes.Buffer
	logWriter := &syncWriter{w: &logBuf}
	if s.Log != nil {
		logWriter.w = io.MultiWriter(&logBuf, s.Log)
	}
	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coll := sink.NewCollector()
	ctx := ops.NewContext(logWriter, s.MaxThreads)
	ctx.Sink = coll
	ctx.Sandboxed = s.Sandboxed

	promises, err := args.Sequence.MakePromises(nil, ctx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "log": logBuf.String()})
		return
	}
	frames, err := ops.MaterializeAll(promises, ctx.MaxThreads, false)

	res := postConvertResult{Frames: []frameSummary{}, Records: coll.Records()}
	if res.Records == nil {
		res.Records = []sparse.SparseRecord{}
	}
	for _, f := range frames {
		fs := frameSummary{ID: f.ID, FileName: f.FileName, Nside: f.Nside, Time: f.Time}
		if f.Grid != nil {
			fs.Nx, fs.Ny, fs.Cells = f.Grid.Nx, f.Grid.Ny, f.Grid.Len()
		}
		res.Frames = append(res.Frames, fs)
	}
	if st := stats.SummarizeRecords(res.Records); st != nil {
		res.Stats = st.String()
	}
	status := http.StatusOK
	if err != nil {
		res.Error = err.Error()
		status = http.StatusUnprocessableEntity
	}
	logWriter.mu.Lock()
	res.Log = logBuf.String()
	logWriter.mu.Unlock()
	c.JSON(status, res)
}

type postRegridArgs struct {
	Nx         int                   `json:"nx" binding:"required"`
	Ny         int                   `json:"ny" binding:"required"`
	Factors    []int                 `json:"factors" binding:"required"`
	Aggregator string                `json:"aggregator"`
	Records    []sparse.SparseRecord `json:"records"`
}

type postRegridResult struct {
	Nx      int                   `json:"nx"`
	Ny      int                   `json:"ny"`
	Records []sparse.SparseRecord `json:"records"`
}

// Regrids a posted record set, separately for each time
func (s *Server) postRegrid(c *gin.Context) {
	var args postRegridArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Aggregator == "" {
		args.Aggregator = "sum"
	}
	agg, err := regrid.AggregatorByName(args.Aggregator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coll := sink.NewCollector()
	if err := coll.Put(args.Records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := postRegridResult{Records: []sparse.SparseRecord{}}
	for _, t := range coll.Times() {
		g, err := coll.Slice(t, args.Nx, args.Ny)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out, err := regrid.RegridSparse(g, args.Factors, agg)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res.Nx, res.Ny = out.Nx, out.Ny
		res.Records = append(res.Records, out.Records(t)...)
	}
	if s.Log != nil {
		fmt.Fprintf(s.Log, "Regridded %d records of %dx%d grid to %d records with %s\n",
			len(args.Records), args.Nx, args.Ny, len(res.Records), args.Aggregator)
	}
	c.JSON(http.StatusOK, res)
}
