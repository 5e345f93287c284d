package dbusapi

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Server owns the bus name and the exported keyboard object.
type Server struct {
	conn    *dbus.Conn
	name    string
	path    dbus.ObjectPath
	logger  *slog.Logger
	exposed bool
}

// Node describes the exported object for introspection.
func Node() *introspect.Node {
	return &introspect.Node{
		Name: string(DefaultObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(&Keyboard{}),
				Signals: []introspect.Signal{
					{Name: "LevelChanged", Args: []introspect.Arg{
						{Name: "level", Type: "i"},
						{Name: "latched", Type: "b"},
						{Name: "prefixed", Type: "b"},
					}},
					{Name: "LayoutChanged"},
					{Name: "ActiveChanged", Args: []introspect.Arg{
						{Name: "active", Type: "b"},
					}},
				},
			},
		},
	}
}

// Serve exports kb at path and takes the well-known name. It fails when
// another process owns the name.
func Serve(conn *dbus.Conn, name string, path dbus.ObjectPath, kb *Keyboard, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultBusName
	}
	if path == "" {
		path = DefaultObjectPath
	}

	if err := conn.Export(kb, path, Interface); err != nil {
		return nil, fmt.Errorf("export keyboard: %w", err)
	}
	node := Node()
	node.Name = string(path)
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already taken", name)
	}

	logger.Info("keyboard service exported", "name", name, "path", string(path))
	return &Server{conn: conn, name: name, path: path, logger: logger, exposed: true}, nil
}

// Close releases the name and removes the exported object.
func (s *Server) Close() error {
	if !s.exposed {
		return nil
	}
	s.exposed = false
	_ = s.conn.Export(nil, s.path, Interface)
	_ = s.conn.Export(nil, s.path, "org.freedesktop.DBus.Introspectable")
	if _, err := s.conn.ReleaseName(s.name); err != nil {
		return fmt.Errorf("release bus name: %w", err)
	}
	return nil
}
