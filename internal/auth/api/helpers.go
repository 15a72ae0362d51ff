package authapi

import (
	"net"
	"net/http"
	"strings"

	"gradnet/cmd/identity"
)

func toUserResponse(p identity.Principal) userResponse {
	return userResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Role:           string(p.Role),
		CollegeName:    p.CollegeName,
		Course:         p.Course,
		Specialization: p.Specialization,
		Enrollment:     p.Enrollment,
		YearOfJoining:  p.YearOfJoining,
		YearOfPassing:  p.YearOfPassing,
		LastLoginAt:    p.LastLoginAt,
		CreatedAt:      p.CreatedAt,
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
