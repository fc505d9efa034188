package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"pkt.systems/pslog"
)

const sshDialTimeout = 15 * time.Second

// startNativeSSH runs remote on the configured host with the built-in
// client. Authentication uses the ssh agent and the identity file when
// present; host keys are checked against known_hosts.
func startNativeSSH(ctx context.Context, cfg Config, remote string, log pslog.Logger) (*Process, error) {
	addr := net.JoinHostPort(cfg.SSH.Host, strconv.Itoa(cfg.SSH.Port))
	if log != nil {
		log.Info("runtime start", "transport", "ssh.native", "addr", addr)
	}
	hostKeys, err := hostKeyCallback(cfg.SSH.KnownHosts)
	if err != nil {
		return nil, err
	}
	auth, agentConn, err := authMethods(cfg.SSH)
	if err != nil {
		return nil, err
	}
	closeAgent := func() {
		if agentConn != nil {
			_ = agentConn.Close()
		}
	}
	clientCfg := &ssh.ClientConfig{
		User:            sshUser(cfg.SSH.User),
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         sshDialTimeout,
	}
	dialer := net.Dialer{Timeout: sshDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAgent()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		closeAgent()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		closeAgent()
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		_ = client.Close()
		closeAgent()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = client.Close()
		closeAgent()
		return nil, err
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		_ = client.Close()
		closeAgent()
		return nil, err
	}
	if err := session.Start(remote); err != nil {
		_ = client.Close()
		closeAgent()
		if log != nil {
			log.Error("runtime start failed", "err", err)
		}
		return nil, err
	}
	if log != nil {
		log.Info("runtime started", "addr", addr, "user", clientCfg.User)
	}
	kill := func() error {
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil
	}
	wait := func() (string, int, error) {
		defer closeAgent()
		defer client.Close()
		err := session.Wait()
		var exitErr *ssh.ExitError
		switch {
		case err == nil:
			return "exit status 0", 0, nil
		case errors.As(err, &exitErr):
			if sig := exitErr.Signal(); sig != "" {
				return "signal: " + sig, exitErr.ExitStatus(), nil
			}
			return "exit status " + strconv.Itoa(exitErr.ExitStatus()), exitErr.ExitStatus(), nil
		default:
			var missing *ssh.ExitMissingError
			if errors.As(err, &missing) {
				return "connection closed", -1, nil
			}
			return err.Error(), -1, err
		}
	}
	return newProcess(stdin, stdout, stderr, kill, wait, log), nil
}

func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod
	var agentConn net.Conn
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}
	if cfg.IdentityFile != "" {
		data, err := os.ReadFile(cfg.IdentityFile)
		if err != nil {
			if agentConn != nil {
				_ = agentConn.Close()
			}
			return nil, nil, fmt.Errorf("read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			if agentConn != nil {
				_ = agentConn.Close()
			}
			return nil, nil, fmt.Errorf("parse identity file: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	return methods, agentConn, nil
}

func sshUser(name string) string {
	if name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
