package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"docflow/internal/api"
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
		_ = c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStatus returns queue counters and contents.
func (c *Client) QueueStatus() (*QueueStatusResponse, error) {
	var resp QueueStatusResponse
	if err := c.call("QueueStatus", QueueStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueuePause stops dispatching new imports.
func (c *Client) QueuePause() (*QueueStateResponse, error) {
	var resp QueueStateResponse
	if err := c.call("QueuePause", QueuePauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueResume re-enables dispatching.
func (c *Client) QueueResume() (*QueueStateResponse, error) {
	var resp QueueStateResponse
	if err := c.call("QueueResume", QueueResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear drops pending and retrying jobs.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.call("QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddFile enqueues a file for import.
func (c *Client) AddFile(path string) (*AddFileResponse, error) {
	var resp AddFileResponse
	if err := c.call("AddFile", AddFileRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportsList returns ledger rows matching query.
func (c *Client) ImportsList(query api.ImportQuery) (*ImportsListResponse, error) {
	var resp ImportsListResponse
	if err := c.call("ImportsList", ImportsListRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConflictsList returns conflicts matching query.
func (c *Client) ConflictsList(query api.ConflictQuery) (*ConflictsListResponse, error) {
	var resp ConflictsListResponse
	if err := c.call("ConflictsList", ConflictsListRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConflictsCount returns pending and total conflicts visible to userID.
func (c *Client) ConflictsCount(userID *int64) (*ConflictsCountResponse, error) {
	var resp ConflictsCountResponse
	if err := c.call("ConflictsCount", ConflictsCountRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConflictDescribe returns a single conflict.
func (c *Client) ConflictDescribe(id int64) (*ConflictDescribeResponse, error) {
	var resp ConflictDescribeResponse
	if err := c.call("ConflictDescribe", ConflictDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConflictsResolve closes conflicts.
func (c *Client) ConflictsResolve(req api.ResolveConflictRequest) (*ConflictsResolveResponse, error) {
	var resp ConflictsResolveResponse
	if err := c.call("ConflictsResolve", ConflictsResolveRequest{Request: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuthorsSet maps a document author to a user id.
func (c *Client) AuthorsSet(name string, userID int64) (*AuthorsSetResponse, error) {
	var resp AuthorsSetResponse
	if err := c.call("AuthorsSet", AuthorsSetRequest{Name: name, UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuthorsList returns every author mapping.
func (c *Client) AuthorsList() (*AuthorsListResponse, error) {
	var resp AuthorsListResponse
	if err := c.call("AuthorsList", AuthorsListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.call("DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
