package meet

import (
	"fmt"

	"github.com/timoknapp/sports-meet/pkg/certificate"
	"github.com/timoknapp/sports-meet/pkg/metrics"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/scope"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

// CertificateFilter selects results for batch generation and certificates
// for listing. Rank 0 matches ranks 1 to 3.
type CertificateFilter struct {
	ClassID    string
	EventID    string
	Rank       int
	TemplateID string
}

func (f CertificateFilter) matches(classID, eventID string, rank int) bool {
	return (f.ClassID == "" || classID == f.ClassID) &&
		(f.EventID == "" || eventID == f.EventID) &&
		(f.Rank == 0 || rank == f.Rank)
}

func awardRank(rank int) bool {
	return rank >= 1 && rank <= 3
}

func (m *Service) Certificates(sess session.Session, f CertificateFilter) []*models.Certificate {
	visible := scope.Apply(sess.Scope(), scope.Certificates, m.store.Certificates.GetAll())
	out := make([]*models.Certificate, 0, len(visible))
	for _, c := range visible {
		if f.matches(c.ClassID, c.EventID, c.Rank) {
			out = append(out, c)
		}
	}
	return out
}

// GenerateCertificate renders and stores a certificate for a top three
// result. An empty templateID uses the built-in template.
func (m *Service) GenerateCertificate(sess session.Session, resultID, templateID string) (*models.Certificate, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.scopedResult(sess, resultID)
	if err != nil {
		return nil, err
	}
	if !awardRank(result.Rank) {
		return nil, invalid("rank", fmt.Sprintf("rank %d does not qualify for a certificate", result.Rank))
	}
	certs, err := m.generate(sess, []*models.Result{result}, templateID)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// BatchGenerate creates one certificate per top three result matching f.
// An empty selection is a validation failure and writes nothing.
func (m *Service) BatchGenerate(sess session.Session, f CertificateFilter) ([]*models.Certificate, error) {
	if err := staff(sess); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var eligible []*models.Result
	for _, r := range scope.Apply(sess.Scope(), scope.Results, m.store.Results.GetAll()) {
		if awardRank(r.Rank) && f.matches(r.ClassID, r.EventID, r.Rank) {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleResults
	}
	certs, err := m.generate(sess, eligible, f.TemplateID)
	if err != nil {
		return nil, err
	}
	m.log.Info("Generated %d certificates", len(certs))
	return certs, nil
}

func (m *Service) generate(sess session.Session, results []*models.Result, templateID string) ([]*models.Certificate, error) {
	info, ok := m.store.MeetInfo()
	if !ok {
		return nil, ErrMeetInfoMissing
	}
	renderer, templateID, err := m.rendererFor(templateID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	images := make([]string, len(results))
	for i, r := range results {
		image, err := renderer.Render(*info, *r, now)
		if err != nil {
			return nil, fmt.Errorf("render certificate for %s: %w", r.StudentName, err)
		}
		images[i] = image
	}

	certs := make([]*models.Certificate, 0, len(results))
	for i, r := range results {
		cert := m.store.Certificates.Add(&models.Certificate{
			StudentID:        r.StudentID,
			StudentName:      r.StudentName,
			ClassID:          r.ClassID,
			ClassName:        r.ClassName,
			EventID:          r.EventID,
			EventName:        r.EventName,
			Rank:             r.Rank,
			Points:           r.Points,
			TemplateID:       templateID,
			CertificateImage: images[i],
		})
		m.audit(sess, "generate", targetCertificate, fmt.Sprintf("generated %s certificate for %s", r.EventName, r.StudentName))
		certs = append(certs, cert)
	}
	metrics.CertificatesGenerated(len(certs))
	return certs, nil
}

func (m *Service) rendererFor(templateID string) (*certificate.Renderer, string, error) {
	if templateID == "" || templateID == certificate.DefaultTemplateID {
		return m.renderer, certificate.DefaultTemplateID, nil
	}
	tpl, ok := m.store.CertificateTemplates.Find(templateID)
	if !ok {
		return nil, "", invalid("templateId", "certificate template does not exist")
	}
	if tpl.TemplateImage == "" {
		return m.renderer, tpl.ID, nil
	}
	r, err := certificate.WithTemplate(tpl.TemplateImage)
	if err != nil {
		return nil, "", invalid("templateId", err.Error())
	}
	return r, tpl.ID, nil
}

func (m *Service) DeleteCertificate(sess session.Session, id string) error {
	if err := staff(sess); err != nil {
		return err
	}
	cert, ok := m.store.Certificates.Find(id)
	if !ok {
		return notFound(targetCertificate, id)
	}
	if err := withinScope(sess, scope.Certificates, cert.ClassID); err != nil {
		return err
	}
	m.store.Certificates.Delete(id)
	m.audit(sess, "delete", targetCertificate, fmt.Sprintf("deleted %s certificate of %s", cert.EventName, cert.StudentName))
	return nil
}

func (m *Service) CertificateTemplates() []*models.CertificateTemplate {
	return m.store.CertificateTemplates.GetAll()
}

func (m *Service) CreateTemplate(sess session.Session, t models.CertificateTemplate) (*models.CertificateTemplate, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	switch {
	case t.Name == "":
		return nil, required("name")
	case t.Type == "":
		return nil, required("type")
	case !t.Type.Valid():
		return nil, invalid("type", fmt.Sprintf("unknown award type %q", t.Type))
	case t.Category == "":
		return nil, required("category")
	case !t.Category.Valid():
		return nil, invalid("category", fmt.Sprintf("unknown award scope %q", t.Category))
	}
	if t.TemplateImage != "" {
		if _, err := certificate.WithTemplate(t.TemplateImage); err != nil {
			return nil, invalid("templateImage", err.Error())
		}
	}
	created := m.store.CertificateTemplates.Add(&t)
	m.audit(sess, "create", targetTemplate, "created template "+created.Name)
	return created, nil
}

func (m *Service) UpdateTemplate(sess session.Session, id string, patch store.Patch) (*models.CertificateTemplate, error) {
	if err := superAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkPatch(patch, "name", "type", "category"); err != nil {
		return nil, err
	}
	if v, ok := patchString(patch, "type"); ok && !models.AwardType(v).Valid() {
		return nil, invalid("type", fmt.Sprintf("unknown award type %q", v))
	}
	if v, ok := patchString(patch, "category"); ok && !models.AwardScope(v).Valid() {
		return nil, invalid("category", fmt.Sprintf("unknown award scope %q", v))
	}
	if html, ok := patchString(patch, "templateImage"); ok && html != "" {
		if _, err := certificate.WithTemplate(html); err != nil {
			return nil, invalid("templateImage", err.Error())
		}
	}
	if err := applyPatch(m.store.CertificateTemplates, targetTemplate, id, patch); err != nil {
		return nil, err
	}
	updated, _ := m.store.CertificateTemplates.Find(id)
	m.audit(sess, "update", targetTemplate, "updated template "+updated.Name)
	return updated, nil
}

func (m *Service) DeleteTemplate(sess session.Session, id string) error {
	if err := superAdmin(sess); err != nil {
		return err
	}
	t, ok := m.store.CertificateTemplates.Find(id)
	if !ok {
		return notFound(targetTemplate, id)
	}
	m.store.CertificateTemplates.Delete(id)
	m.audit(sess, "delete", targetTemplate, "deleted template "+t.Name)
	return nil
}
