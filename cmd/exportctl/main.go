package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// exportctl submits an export to a running service and polls it to a
// terminal state, optionally saving the artifact.

type submitRequest struct {
	ProjectUnitID int    `json:"project_unit_id"`
	BookIDs       []int  `json:"book_ids,omitempty"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

type submitResponse struct {
	WorkflowID string `json:"workflow_id"`
}

type jobResponse struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Filename string `json:"filename"`
	FileSize int    `json:"file_size"`
	Error    string `json:"error"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "service base URL")
	apiKey := flag.String("key", os.Getenv("EXPORT_API_KEY"), "bearer API key")
	project := flag.Int("project", 0, "project unit id to export")
	books := flag.String("books", "", "comma-separated book ids (empty = all)")
	out := flag.String("out", "", "write the artifact to this path on completion")
	interval := flag.Duration("interval", 2*time.Second, "poll interval")
	flag.Parse()

	if *project <= 0 {
		log.Fatal("-project is required")
	}
	bookIDs, err := parseBookIDs(*books)
	if err != nil {
		log.Fatalf("parse -books: %v", err)
	}

	c := &client{base: strings.TrimRight(*addr, "/"), key: *apiKey}

	workflowID, err := c.submit(submitRequest{ProjectUnitID: *project, BookIDs: bookIDs, RequestedBy: "exportctl"})
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	fmt.Printf("workflow %s\n", workflowID)

	for {
		job, err := c.poll(workflowID)
		if err != nil {
			log.Fatalf("poll: %v", err)
		}
		fmt.Printf("status=%s progress=%d\n", job.Status, job.Progress)
		switch job.Status {
		case "completed":
			fmt.Printf("done: %s (%d bytes)\n", job.Filename, job.FileSize)
			if *out != "" {
				if err := c.download(workflowID, *out); err != nil {
					log.Fatalf("download: %v", err)
				}
				fmt.Printf("saved to %s\n", *out)
			}
			return
		case "failed":
			log.Fatalf("export failed: %s", job.Error)
		}
		time.Sleep(*interval)
	}
}

func parseBookIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type client struct {
	base string
	key  string
}

func (c *client) do(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *client) submit(req submitRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := c.do(http.MethodPost, "/api/v1/exports", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.WorkflowID, nil
}

func (c *client) poll(workflowID string) (*jobResponse, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/exports/"+workflowID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *client) download(workflowID, path string) error {
	resp, err := c.do(http.MethodGet, "/api/v1/exports/"+workflowID+"/file", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}
