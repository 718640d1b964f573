package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/perudosmundos/audio-sub003/internal/config"
)

// SFTPStore is the legacy Hostinger backend. Files live under a web-served
// directory, so the public URL is a pure path derivation. A fresh SSH
// session is dialed per operation; the host drops idle connections.
type SFTPStore struct {
	addr       string
	sshConfig  *ssh.ClientConfig
	basePath   string
	publicBase string
	log        zerolog.Logger
}

// NewSFTPStore creates the Hostinger backend from config.
func NewSFTPStore(cfg *config.Config, log zerolog.Logger) *SFTPStore {
	return &SFTPStore{
		addr: fmt.Sprintf("%s:%d", cfg.SFTPHost, cfg.SFTPPort),
		sshConfig: &ssh.ClientConfig{
			User: cfg.SFTPUser,
			Auth: []ssh.AuthMethod{ssh.Password(cfg.SFTPPassword)},
			// Shared-hosting provider rotates host keys across nodes.
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		},
		basePath:   strings.TrimSuffix(cfg.SFTPBasePath, "/"),
		publicBase: strings.TrimSuffix(cfg.SFTPPublicBaseURL, "/"),
		log:        log.With().Str("component", "sftp-store").Logger(),
	}
}

type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *SFTPStore) connect() (*sftpSession, error) {
	conn, err := ssh.Dial("tcp", s.addr, s.sshConfig)
	if err != nil {
		return nil, fmt.Errorf("sftp dial %s: %w", s.addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &sftpSession{ssh: conn, sftp: client}, nil
}

func (ses *sftpSession) close() {
	ses.sftp.Close()
	ses.ssh.Close()
}

func (s *SFTPStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress ProgressFunc) error {
	ses, err := s.connect()
	if err != nil {
		return err
	}
	defer ses.close()

	remote := s.remotePath(key, "")
	if err := ses.sftp.MkdirAll(path.Dir(remote)); err != nil {
		return fmt.Errorf("sftp mkdir %s: %w", path.Dir(remote), err)
	}

	// Write to a dotfile first so the web server never serves a partial
	// upload, then rename into place.
	tmp := path.Join(path.Dir(remote), "."+path.Base(remote)+".part")
	f, err := ses.sftp.Create(tmp)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, newProgressReader(r, size, progress)); err != nil {
		f.Close()
		ses.sftp.Remove(tmp)
		return fmt.Errorf("sftp write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		ses.sftp.Remove(tmp)
		return fmt.Errorf("sftp close %s: %w", tmp, err)
	}
	if err := ses.sftp.PosixRename(tmp, remote); err != nil {
		ses.sftp.Remove(tmp)
		return fmt.Errorf("sftp rename %s: %w", remote, err)
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

func (s *SFTPStore) Delete(ctx context.Context, key, bucket string) error {
	ses, err := s.connect()
	if err != nil {
		return err
	}
	defer ses.close()

	remote := s.remotePath(key, bucket)
	if err := ses.sftp.Remove(remote); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("sftp remove %s: %w", remote, err)
	}
	return nil
}

func (s *SFTPStore) PublicURL(key, bucket string) string {
	if bucket != "" {
		return s.publicBase + "/" + bucket + "/" + key
	}
	return s.publicBase + "/" + key
}

func (s *SFTPStore) Exists(ctx context.Context, filename string) (bool, error) {
	ses, err := s.connect()
	if err != nil {
		return false, err
	}
	defer ses.close()

	_, err = ses.sftp.Stat(s.remotePath(filename, ""))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("sftp stat %s: %w", filename, err)
	}
	return true, nil
}

func (s *SFTPStore) Ping(ctx context.Context) error {
	ses, err := s.connect()
	if err != nil {
		return err
	}
	defer ses.close()

	if _, err := ses.sftp.Stat(s.basePath); err != nil {
		return fmt.Errorf("sftp stat base path %s: %w", s.basePath, err)
	}
	return nil
}

func (s *SFTPStore) Provider() Provider { return ProviderHostinger }

func (s *SFTPStore) remotePath(key, bucket string) string {
	if bucket != "" {
		return path.Join(s.basePath, bucket, key)
	}
	return path.Join(s.basePath, key)
}
