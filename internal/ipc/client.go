package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping verifies daemon liveness.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Hindsight.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Hindsight.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartRecording requests the daemon to begin the rolling capture.
func (c *Client) StartRecording() (*StartRecordingResponse, error) {
	var resp StartRecordingResponse
	if err := c.client.Call("Hindsight.StartRecording", StartRecordingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRecording requests the daemon to halt the rolling capture.
func (c *Client) StopRecording() (*StopRecordingResponse, error) {
	var resp StopRecordingResponse
	if err := c.client.Call("Hindsight.StopRecording", StopRecordingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export merges the last windowSeconds of buffered capture into a recording.
// Zero selects the daemon's configured default window.
func (c *Client) Export(windowSeconds int) (*ExportResponse, error) {
	var resp ExportResponse
	req := ExportRequest{WindowSeconds: windowSeconds}
	if err := c.client.Call("Hindsight.Export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recordings lists catalogued recordings, newest first.
func (c *Client) Recordings(limit int) (*RecordingsResponse, error) {
	var resp RecordingsResponse
	req := RecordingsRequest{Limit: limit}
	if err := c.client.Call("Hindsight.Recordings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveRecording deletes a recording row and its artifact file.
func (c *Client) RemoveRecording(id int64) (*RemoveRecordingResponse, error) {
	var resp RemoveRecordingResponse
	req := RemoveRecordingRequest{ID: id}
	if err := c.client.Call("Hindsight.RemoveRecording", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TailLog returns log lines from the daemon.
func (c *Client) TailLog(req TailLogRequest) (*TailLogResponse, error) {
	var resp TailLogResponse
	if err := c.client.Call("Hindsight.TailLog", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
