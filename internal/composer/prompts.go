package composer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/restock-systems/stockwatch/internal/evaluator"
	"github.com/restock-systems/stockwatch/internal/models"
)

// DefaultSupplierName is used when an order request names no supplier.
const DefaultSupplierName = "Bos Supplier"

func singleItemPrompt(rec *models.StockRecord) string {
	return fmt.Sprintf(`Berperanlah sebagai asisten gudang.
Stok %q sisa %s %s (Kritis).
Buat notifikasi Android singkat, gaya bahasa Indonesia santai/pasar, panggil "Bos".
Jawab HANYA dengan objek JSON: { "title": "...", "body": "..." }`,
		rec.Name, models.FormatQuantity(rec.CurrentStock), rec.Unit)
}

func batchSummaryPrompt(alerts []models.AlertEntry) string {
	data, _ := json.Marshal(alerts)
	return fmt.Sprintf(`Berperanlah sebagai asisten gudang yang melapor ke pemilik toko.
Barang berikut diperkirakan habis dalam kurang dari %d hari:
%s
(sisa = stok tersisa, habis_dalam = perkiraan hari sampai habis)
Tulis satu laporan singkat (maksimal dua kalimat) dalam bahasa Indonesia santai, panggil "Bos",
sebutkan jumlah barang dan barang yang paling mendesak.
Jawab HANYA dengan objek JSON: { "message": "..." }`,
		int(evaluator.AlertHorizonDays), data)
}

func orderTextPrompt(req *models.OrderTextRequest) string {
	items, _ := json.Marshal(req.Items)
	return fmt.Sprintf(`Anda asisten toko. Buatkan chat WhatsApp order barang ke Supplier.

Supplier: %s
Barang: %s

Gaya Bahasa:
- Sopan, akrab, tapi profesional (Chat WA).
- Pakai list strip (-) untuk barang.
- Jangan kaku seperti surat resmi.

Jawab HANYA dengan objek JSON: { "message": "String pesan WA..." }`,
		supplierName(req), items)
}

func supplierName(req *models.OrderTextRequest) string {
	if name := strings.TrimSpace(req.SupplierName); name != "" {
		return name
	}
	return DefaultSupplierName
}

// =============================================================================
// Fallback templates
// =============================================================================

func singleItemFallback(rec *models.StockRecord) Fragment {
	return Fragment{
		Title: "ALERT STOCK",
		Body: fmt.Sprintf("Bos, %s sisa %s %s. Restock segera!",
			rec.Name, models.FormatQuantity(rec.CurrentStock), rec.Unit),
	}
}

func batchSummaryFallback(alerts []models.AlertEntry) Fragment {
	urgent, ok := evaluator.MostUrgent(alerts)
	if !ok {
		return Fragment{Message: AllClearMessage}
	}
	return Fragment{
		Message: fmt.Sprintf("Bos, %d barang hampir habis. Paling mendesak: %s sisa %s, habis dalam %d hari. Segera restock!",
			len(alerts), urgent.Name, models.FormatQuantity(urgent.RemainingQty), urgent.DaysRemaining),
	}
}

// AllClearMessage is reported when no record is forecast to run out.
const AllClearMessage = "Stok aman semua, Bos. Tidak ada barang yang akan habis dalam 3 hari."

func orderTextFallback(req *models.OrderTextRequest) Fragment {
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, saya mau order barang berikut:\n", supplierName(req))
	for _, item := range req.Items {
		b.WriteString("- " + item.Line())
		b.WriteByte('\n')
	}
	b.WriteString("Mohon dikabari total dan jadwal kirimnya. Terima kasih.")
	return Fragment{Message: b.String()}
}
